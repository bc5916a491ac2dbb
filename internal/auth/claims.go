package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported token claims shape for the control surface.
// The daemon serves one user; a claim identifies which UI client holds the
// token, not who the person is.
type Claims struct {
	jwt.RegisteredClaims

	// Client names the UI that paired with the daemon ("desktop", "tray", ...).
	Client string `json:"client"`
}
