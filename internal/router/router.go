package router

import "strings"

// Page identifies a view the shell can render.
type Page string

const (
	PageHome    Page = "Home"
	PageProfile Page = "Profile"
)

// Route maps a path to a page. Name is unique per route; several routes may
// share a page.
type Route struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Page Page   `json:"page"`
}

// Table is an ordered, static route table.
type Table struct {
	routes []Route
}

// DefaultTable is the launcher's route table: "/" and "/home" both render
// Home, "/profile" renders Profile.
func DefaultTable() *Table {
	return NewTable([]Route{
		{Path: "/", Name: "Home", Page: PageHome},
		{Path: "/home", Name: "Home2", Page: PageHome},
		{Path: "/profile", Name: "Profile", Page: PageProfile},
	})
}

// NewTable creates a table from routes, in order.
func NewTable(routes []Route) *Table {
	return &Table{routes: append([]Route(nil), routes...)}
}

// Routes returns a copy of the table's routes.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Resolve returns the route for path. The path may be given in hash form
// ("#/profile"); a query string or trailing slash is ignored.
func (t *Table) Resolve(path string) (Route, bool) {
	p := Normalize(path)
	for _, r := range t.routes {
		if r.Path == p {
			return r, true
		}
	}
	return Route{}, false
}

// ByName returns the route with the given name.
func (t *Table) ByName(name string) (Route, bool) {
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Normalize turns "#/home/?tab=1", "home" and "/home" into "/home".
func Normalize(path string) string {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "#")
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
