package profile

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// LoadFile reads a connection profile from a YAML file so the daemon can come
// up pre-provisioned. The file is user-authored input; the daemon never
// writes profiles back.
func LoadFile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	if p.BindPort == 0 {
		p.BindPort = 5060
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
