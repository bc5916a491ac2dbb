package auth

import "context"

type ctxKey struct{}

type identity struct {
	client string
}

// WithClient stores the verified client name in context.
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity{client: client})
}

// Client returns the verified client name, if any.
func Client(ctx context.Context) (string, bool) {
	if v := ctx.Value(ctxKey{}); v != nil {
		if id, ok := v.(identity); ok && id.client != "" {
			return id.client, true
		}
	}
	return "", false
}
