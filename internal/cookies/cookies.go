// Package cookies persists session cookies to a YAML file so logins
// survive between runs.
package cookies

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Cookie is the on-disk cookie representation.
type Cookie struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Domain string `yaml:"domain,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// Store reads and writes the cookie file.
type Store struct {
	path string
}

// NewStore creates a store over path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted cookies, or nil when the file is absent.
func (s *Store) Load() ([]Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var out []Cookie
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode cookie file: %w", err)
	}
	return out, nil
}

// Save writes cookies to the store path, creating parent directories as
// needed.
func (s *Store) Save(cs []Cookie) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cookie directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cs)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

// Delete removes the cookie file, typically after the site rejected the
// session.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cookie file: %w", err)
	}
	return nil
}

// ToHTTP converts stored cookies to net/http cookies.
func ToHTTP(cs []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cs))
	for _, c := range cs {
		path := c.Path
		if path == "" {
			path = "/"
		}
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   path,
		})
	}
	return out
}

// FromHTTP converts session cookies to the on-disk representation.
func FromHTTP(cs []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cs))
	for _, c := range cs {
		out = append(out, Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return out
}
