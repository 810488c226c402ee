package pms

import (
	"strings"
	"sync"
)

// Route paths served by the view router.
const (
	RouteHome   = "/"
	RouteLogin  = "/login"
	RouteSignup = "/signup"
)

// View is one of the screens the router can show.
type View string

const (
	ViewHome   View = "home"
	ViewLogin  View = "login"
	ViewSignup View = "signup"
)

// NavigationState is carried across exactly one redirect.
type NavigationState struct {
	From   string     `json:"from,omitempty"`
	Notice MessageKey `json:"notice,omitempty"`
	// Detail is the argument of notices that take one.
	Detail string `json:"detail,omitempty"`
}

// FromOr returns From, or def when no originating path was recorded.
func (s *NavigationState) FromOr(def string) string {
	if s == nil || s.From == "" {
		return def
	}
	return s.From
}

// NavigateOptions mirror the router's navigate call.
type NavigateOptions struct {
	Replace bool
	State   *NavigationState
}

// Location is the router's current position.
type Location struct {
	Path  string
	State *NavigationState
}

// MatchView maps a path to its view. Unknown paths resolve to home with
// redirect set, mirroring the fallback route.
func MatchView(path string) (view View, redirect bool) {
	p, _, _ := strings.Cut(path, "?")
	p = strings.TrimSuffix(p, "/")
	switch p {
	case "":
		return ViewHome, false
	case RouteLogin:
		return ViewLogin, false
	case RouteSignup:
		return ViewSignup, false
	default:
		return ViewHome, true
	}
}

// SafeReturnPath only lets local absolute paths through so redirect targets
// cannot leave the site.
func SafeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return RouteHome
	}
	return p
}

// MemoryRouter is an in-memory history stack implementing Navigator.
type MemoryRouter struct {
	mu      sync.Mutex
	history []Location
}

func NewMemoryRouter(path string) *MemoryRouter {
	return &MemoryRouter{
		history: []Location{{Path: path}},
	}
}

func (r *MemoryRouter) Navigate(path string, opts NavigateOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, redirect := MatchView(path); redirect {
		path = RouteHome
	}

	loc := Location{Path: path, State: opts.State}
	if opts.Replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = loc
		return nil
	}
	r.history = append(r.history, loc)
	return nil
}

func (r *MemoryRouter) Location() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// ConsumeState returns the current location state and clears it, since
// navigation state is read once by the destination view.
func (r *MemoryRouter) ConsumeState() *NavigationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := &r.history[len(r.history)-1]
	st := last.State
	last.State = nil
	return st
}

// Len is the number of history entries.
func (r *MemoryRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}
