package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how the endpoint reaches the remote party.
// Exactly one mode is active per profile; changing modes means tearing the
// session down and initializing again.
type Mode string

const (
	// ModeServer registers against a SIP registrar with credentials.
	ModeServer Mode = "server"
	// ModePeerToPeer dials a peer directly, no registrar involved.
	ModePeerToPeer Mode = "peer_to_peer"
	// ModeReceiver only listens for inbound calls.
	ModeReceiver Mode = "receiver"
)

// DefaultRegistrationExpiry is the REGISTER expiry requested in server mode.
const DefaultRegistrationExpiry = 3600

// Profile is the immutable-per-session connection configuration.
// Replaced wholesale on reconfigure, never mutated in place.
type Profile struct {
	DisplayName string `json:"display_name" yaml:"display_name"`
	Mode        Mode   `json:"mode" yaml:"mode"`

	// Server mode fields.
	ServerURI string `json:"server_uri,omitempty" yaml:"server_uri,omitempty"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`

	// Peer-to-peer mode field.
	PeerURI string `json:"peer_uri,omitempty" yaml:"peer_uri,omitempty"`

	BindPort int    `json:"bind_port" yaml:"bind_port"`
	BindAddr string `json:"bind_addr,omitempty" yaml:"bind_addr,omitempty"`
}

var (
	ErrInvalidProfile = errors.New("profile: invalid profile")
	ErrInvalidTarget  = errors.New("profile: invalid call target")
)

// FromInput builds a profile from raw registration-form input, inferring the
// connection mode the way the desktop client did: an empty server field means
// receive-only, a field containing '@' is a direct peer URI, anything else is
// a registrar address.
func FromInput(displayName, username, password, server, bindAddr string, bindPort int) Profile {
	p := Profile{
		DisplayName: displayName,
		Username:    username,
		BindPort:    bindPort,
		BindAddr:    bindAddr,
	}
	server = strings.TrimSpace(server)
	switch {
	case server == "":
		p.Mode = ModeReceiver
	case strings.Contains(server, "@"):
		p.Mode = ModePeerToPeer
		p.PeerURI = ensureScheme(server)
	default:
		p.Mode = ModeServer
		p.ServerURI = ensureScheme(server)
		p.Password = password
	}
	return p
}

// Validate enforces the one-active-mode invariant and per-mode required fields.
func (p Profile) Validate() error {
	var errs []string
	switch p.Mode {
	case ModeServer:
		if p.ServerURI == "" {
			errs = append(errs, "server_uri is required in server mode")
		}
		if p.Username == "" {
			errs = append(errs, "username is required in server mode")
		}
		if p.PeerURI != "" {
			errs = append(errs, "peer_uri must be empty in server mode")
		}
	case ModePeerToPeer:
		if p.PeerURI == "" {
			errs = append(errs, "peer_uri is required in peer_to_peer mode")
		}
		if p.ServerURI != "" || p.Password != "" {
			errs = append(errs, "server fields must be empty in peer_to_peer mode")
		}
	case ModeReceiver:
		if p.ServerURI != "" || p.PeerURI != "" {
			errs = append(errs, "server_uri and peer_uri must be empty in receiver mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", p.Mode))
	}
	if p.BindPort <= 0 || p.BindPort > 65535 {
		errs = append(errs, fmt.Sprintf("bind_port must be a valid port, got %d", p.BindPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(errs, "; "))
	}
	return nil
}

// RequiresRegistration reports whether this profile needs a registrar round
// trip before calls can flow. Receiver and peer-to-peer sessions are ready
// as soon as the engine starts.
func (p Profile) RequiresRegistration() bool {
	return p.Mode == ModeServer
}

// FormatTarget normalizes a user-entered call target for this profile's mode.
// Server mode defaults the sip: scheme; peer-to-peer resolves a bare name
// against the configured peer's domain; receiver mode passes through.
func (p Profile) FormatTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}
	if strings.ContainsAny(target, " \t") {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidTarget, target)
	}
	switch p.Mode {
	case ModePeerToPeer:
		if !strings.Contains(target, "@") {
			domain := Domain(p.PeerURI)
			if domain == "" {
				return "", fmt.Errorf("%w: cannot resolve bare name %q without a peer domain", ErrInvalidTarget, target)
			}
			return fmt.Sprintf("sip:%s@%s", target, domain), nil
		}
		return ensureScheme(target), nil
	default:
		return ensureScheme(target), nil
	}
}

// Registration describes the REGISTER request derived from a server-mode
// profile.
type Registration struct {
	ServerURI string
	AOR       string
	Contact   string
	Username  string
	Password  string
	Expiry    int
}

// Registration derives registrar parameters from the profile. Only valid for
// server mode; the record of authority is user@domain of the registrar and
// the contact points back at the local bind address.
func (p Profile) Registration() (Registration, error) {
	if p.Mode != ModeServer {
		return Registration{}, fmt.Errorf("%w: registration requires server mode", ErrInvalidProfile)
	}
	domain := Domain(p.ServerURI)
	if domain == "" {
		return Registration{}, fmt.Errorf("%w: server_uri has no host", ErrInvalidProfile)
	}
	contactHost := p.BindAddr
	if contactHost == "" {
		contactHost = "127.0.0.1"
	}
	return Registration{
		ServerURI: p.ServerURI,
		AOR:       fmt.Sprintf("sip:%s@%s", p.Username, domain),
		Contact:   fmt.Sprintf("sip:%s@%s:%d", p.Username, contactHost, p.BindPort),
		Username:  p.Username,
		Password:  p.Password,
		Expiry:    DefaultRegistrationExpiry,
	}, nil
}

// LocalURI is the From identity used for outgoing calls.
func (p Profile) LocalURI() string {
	user := p.Username
	if user == "" {
		user = "anonymous"
	}
	switch p.Mode {
	case ModeServer:
		if d := Domain(p.ServerURI); d != "" {
			return fmt.Sprintf("sip:%s@%s", user, d)
		}
	case ModePeerToPeer:
		if d := Domain(p.PeerURI); d != "" {
			return fmt.Sprintf("sip:%s@%s", user, d)
		}
	}
	host := p.BindAddr
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("sip:%s@%s:%d", user, host, p.BindPort)
}

// Domain extracts the host part of a SIP URI, dropping scheme, user part and
// port. Returns "" when nothing resembling a host is present.
func Domain(uri string) string {
	s := strings.TrimPrefix(strings.TrimSpace(uri), "sip:")
	s = strings.TrimPrefix(s, "sips:")
	s = strings.TrimPrefix(s, "//")
	if at := strings.LastIndex(s, "@"); at >= 0 {
		s = s[at+1:]
	}
	if colon := strings.Index(s, ":"); colon >= 0 {
		s = s[:colon]
	}
	return s
}

func ensureScheme(uri string) string {
	if strings.HasPrefix(uri, "sip:") || strings.HasPrefix(uri, "sips:") {
		return uri
	}
	return "sip:" + uri
}
