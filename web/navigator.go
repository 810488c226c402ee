package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goliatone/go-router"
	"github.com/pmsworks/pms"
)

// Cookie names.
const (
	CookieSession = "pms_session"
	CookieNav     = "pms_nav"
	CookieClient  = "pms_client"
	CookieLang    = "pms_lang"
)

const navCookieTTL = 5 * time.Minute

// cookieNavigator is the pms.Navigator of one request. Navigate records the
// target and stores the state in a one-shot cookie; the handler turns the
// target into a redirect. HTTP has no history stack, so Replace and push
// both end in a redirect.
type cookieNavigator struct {
	c        router.Context
	cookies  cookieJar
	location pms.Location
	target   string
}

var _ pms.Navigator = (*cookieNavigator)(nil)

func newNavigator(c router.Context, cookies cookieJar, path string, state *pms.NavigationState) *cookieNavigator {
	return &cookieNavigator{
		c:        c,
		cookies:  cookies,
		location: pms.Location{Path: path, State: state},
	}
}

func (n *cookieNavigator) Navigate(path string, opts pms.NavigateOptions) error {
	path = pms.SafeReturnPath(path)

	if opts.State != nil {
		raw, err := encodeNavState(opts.State)
		if err != nil {
			return err
		}
		n.cookies.set(n.c, CookieNav, raw, navCookieTTL)
	} else if n.c.Cookies(CookieNav) != "" {
		n.cookies.clear(n.c, CookieNav)
	}

	n.target = path
	n.location = pms.Location{Path: path, State: opts.State}
	return nil
}

func (n *cookieNavigator) Location() pms.Location {
	return n.location
}

// Redirected reports whether Navigate was called.
func (n *cookieNavigator) Redirected() bool {
	return n.target != ""
}

// Redirect answers the request with the recorded navigation.
func (n *cookieNavigator) Redirect() error {
	status := http.StatusSeeOther
	if n.c.Method() == string(router.GET) {
		status = http.StatusFound
	}
	return n.c.Redirect(n.target, status)
}

// consumeNavState reads and discards the one-shot navigation state.
func consumeNavState(c router.Context, cookies cookieJar) *pms.NavigationState {
	raw := c.Cookies(CookieNav)
	if raw == "" {
		return nil
	}
	cookies.clear(c, CookieNav)

	state, err := decodeNavState(raw)
	if err != nil {
		return nil
	}
	if state.From != "" {
		state.From = pms.SafeReturnPath(state.From)
	}
	return state
}

func encodeNavState(state *pms.NavigationState) (string, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeNavState(raw string) (*pms.NavigationState, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	var state pms.NavigationState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// cookieJar writes the cookies of this app with shared attributes.
type cookieJar struct {
	secure bool
}

func (j cookieJar) set(c router.Context, name, value string, ttl time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   j.secure,
		SameSite: "Lax",
	})
}

func (j cookieJar) clear(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   j.secure,
		SameSite: "Lax",
	})
}
