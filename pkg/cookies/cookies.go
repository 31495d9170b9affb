// Package cookies loads browser-exported session cookies and converts them
// for the HTTP client and the browser.
package cookies

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	DefaultDomain = ".douyin.com"
	DefaultPath   = "/"
)

// RequiredNames must be present for a logged-in session.
var RequiredNames = []string{"sessionid"}

// RecommendedNames reduce verification prompts and risk checks.
var RecommendedNames = []string{"ttwid", "odin_tt", "passport_csrf_token"}

// ErrNotFound is returned by LoadFile when the cookie file does not exist.
var ErrNotFound = errors.New("cookie file not found")

// Cookie is one name/value pair with the attributes the browser needs.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"httpOnly"`
	Expires  time.Time `json:"-"`
}

// exported is the shape written by browser cookie-export extensions and by
// DevTools. Expiry arrives either as expirationDate or expires, in seconds.
type exported struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	Expires        *float64 `json:"expires,omitempty"`
	ExpirationDate *float64 `json:"expirationDate,omitempty"`
}

// Parse decodes a JSON array of cookie objects. Entries without a name or a
// value are dropped; a missing domain or path gets the platform default.
func Parse(data []byte) ([]Cookie, error) {
	var raw []exported
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cookies: %w", err)
	}

	out := make([]Cookie, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" || r.Value == "" {
			continue
		}
		c := Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
		}
		if c.Domain == "" {
			c.Domain = DefaultDomain
		}
		if c.Path == "" {
			c.Path = DefaultPath
		}
		exp := r.ExpirationDate
		if exp == nil {
			exp = r.Expires
		}
		if exp != nil && *exp > 0 {
			sec := int64(*exp)
			c.Expires = time.Unix(sec, int64((*exp-float64(sec))*1e9))
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseHeader reads a "name=value; name2=value2" string as copied from a
// request's Cookie header.
func ParseHeader(header string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" || value == "" {
			continue
		}
		out = append(out, Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: DefaultDomain,
			Path:   DefaultPath,
		})
	}
	return out
}

// LoadFile reads a cookie file. A missing file yields ErrNotFound so
// callers can continue anonymously.
func LoadFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	return Parse(data)
}

// Save writes cookies as a JSON array readable by LoadFile.
func Save(path string, cs []Cookie) error {
	raw := make([]exported, len(cs))
	for i, c := range cs {
		raw[i] = exported{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Expires.IsZero() {
			sec := float64(c.Expires.Unix())
			raw[i].ExpirationDate = &sec
		}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

// Report is the result of Validate.
type Report struct {
	Count              int
	MissingRequired    []string
	MissingRecommended []string
	Expired            []string
}

// OK reports whether every required cookie is present and unexpired.
func (r Report) OK() bool {
	return len(r.MissingRequired) == 0 && len(r.Expired) == 0
}

// Validate checks cookies against the required and recommended sets.
func Validate(cs []Cookie, now time.Time) Report {
	byName := make(map[string]Cookie, len(cs))
	for _, c := range cs {
		byName[c.Name] = c
	}

	r := Report{Count: len(cs)}
	for _, name := range RequiredNames {
		c, ok := byName[name]
		switch {
		case !ok:
			r.MissingRequired = append(r.MissingRequired, name)
		case !c.Expires.IsZero() && c.Expires.Before(now):
			r.Expired = append(r.Expired, name)
		}
	}
	for _, name := range RecommendedNames {
		if _, ok := byName[name]; !ok {
			r.MissingRecommended = append(r.MissingRecommended, name)
		}
	}
	return r
}

// ToHTTP converts cookies for an http.Client or cookie jar.
func ToHTTP(cs []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cs))
	for _, c := range cs {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
			Expires:  c.Expires,
		})
	}
	return out
}

// Header renders cookies as a Cookie header value, sorted by name.
func Header(cs []Cookie) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.Name+"="+c.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Names lists cookie names, sorted.
func Names(cs []Cookie) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
