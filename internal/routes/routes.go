// Package routes holds the dashboard's page route table. The table is
// embedded at build time, validated once at startup and never mutated.
package routes

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"
)

//go:embed routes.yaml
var defaultTable []byte

// KnownRoles are the roles a route may require.
var KnownRoles = []string{"admin", "teacher", "student"}

// Route describes one page.
type Route struct {
	Path    string   `json:"path"`
	Page    string   `json:"page"`
	Roles   []string `json:"roles,omitempty"`
	Public  bool     `json:"public,omitempty"`
	Landing bool     `json:"landing,omitempty"`

	segments []string
}

// NavItem is one sidebar link.
type NavItem struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// NavSection groups sidebar links under a label.
type NavSection struct {
	Label string    `json:"label"`
	Items []NavItem `json:"items"`
}

// Table is the parsed route table.
type Table struct {
	routes   []Route
	nav      map[string][]NavSection
	fallback string
}

type document struct {
	Fallback string                  `json:"fallback"`
	Routes   []Route                 `json:"routes"`
	Nav      map[string][]NavSection `json:"nav"`
}

// Default parses the embedded table.
func Default() (*Table, error) {
	return Load(defaultTable)
}

// Load parses and validates a YAML route table.
func Load(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing route table: %w", err)
	}
	if len(doc.Routes) == 0 {
		return nil, errors.New("route table has no routes")
	}

	seen := make(map[string]bool, len(doc.Routes))
	for i := range doc.Routes {
		r := &doc.Routes[i]
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %q must start with /", r.Path)
		}
		if r.Page == "" {
			return nil, fmt.Errorf("route %q has no page", r.Path)
		}
		if seen[r.Path] {
			return nil, fmt.Errorf("duplicate route %q", r.Path)
		}
		seen[r.Path] = true
		for j, role := range r.Roles {
			role = strings.ToLower(strings.TrimSpace(role))
			if !slices.Contains(KnownRoles, role) {
				return nil, fmt.Errorf("route %q requires unknown role %q", r.Path, role)
			}
			r.Roles[j] = role
		}
		if r.Public && len(r.Roles) > 0 {
			return nil, fmt.Errorf("public route %q cannot require roles", r.Path)
		}
		r.segments = split(r.Path)
	}

	t := &Table{routes: doc.Routes, nav: doc.Nav, fallback: doc.Fallback}
	if t.fallback == "" {
		t.fallback = "/"
	}
	if _, ok := t.Lookup(t.fallback); !ok {
		return nil, fmt.Errorf("fallback %q is not a route", t.fallback)
	}
	for set, sections := range t.nav {
		for _, s := range sections {
			for _, item := range s.Items {
				if _, ok := t.Lookup(item.Href); !ok {
					return nil, fmt.Errorf("nav %s links to unknown route %q", set, item.Href)
				}
			}
		}
	}
	return t, nil
}

// Match resolves a request path, binding {param} segments. Static segments
// win over parameters when both match.
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	segs := split(path)

	best := -1
	bestStatic := -1
	for i, r := range t.routes {
		static, ok := matchSegments(r.segments, segs)
		if ok && static > bestStatic {
			best, bestStatic = i, static
		}
	}
	if best < 0 {
		return Route{}, nil, false
	}

	r := t.routes[best]
	var params map[string]string
	for i, s := range r.segments {
		if name, ok := paramName(s); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = segs[i]
		}
	}
	return r, params, true
}

// Lookup finds a route by its declared path.
func (t *Table) Lookup(path string) (Route, bool) {
	for _, r := range t.routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of every route in declaration order.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

// Fallback is where unknown paths are sent.
func (t *Table) Fallback() string {
	return t.fallback
}

// Nav returns the sidebar sections declared for a role set.
func (t *Table) Nav(set string) []NavSection {
	return t.nav[set]
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func paramName(seg string) (string, bool) {
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2 {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

func matchSegments(pattern, segs []string) (int, bool) {
	if len(pattern) != len(segs) {
		return 0, false
	}
	static := 0
	for i, p := range pattern {
		if _, ok := paramName(p); ok {
			if segs[i] == "" {
				return 0, false
			}
			continue
		}
		if p != segs[i] {
			return 0, false
		}
		static++
	}
	return static, true
}
