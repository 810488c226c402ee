package pms

import (
	"fmt"
	"strings"
)

const (
	// ProviderPassword marks sessions started with email and password
	ProviderPassword = "password"
	// ProviderGoogle marks sessions started through Google sign-in
	ProviderGoogle = "google"
)

// Session is the authenticated identity of the current client.
// A nil *Session means no user is signed in.
type Session struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Present reports whether the session holds a user.
func (s *Session) Present() bool {
	return s != nil && s.UserID != ""
}

// Name returns the display name, falling back to "User"
func (s *Session) Name() string {
	if s == nil || s.DisplayName == "" {
		return "User"
	}
	return s.DisplayName
}

// Initial is the avatar letter: display name, then email, then "U".
func (s *Session) Initial() string {
	if s != nil {
		for _, v := range []string{s.DisplayName, s.Email} {
			if v = strings.TrimSpace(v); v != "" {
				return strings.ToUpper(string([]rune(v)[:1]))
			}
		}
	}
	return "U"
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s *Session) String() string {
	if s == nil {
		return "session=<absent>"
	}
	return fmt.Sprintf("user=%s email=%s name=%s provider=%s", s.UserID, s.Email, s.DisplayName, s.Provider)
}
