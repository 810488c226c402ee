package pms

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger takes a message followed by key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// IdentitySource is the identity provider the view layer consumes.
// Implementations notify subscribers whenever the session transitions
// between absent and present.
type IdentitySource interface {
	Subscribe(fn func(*Session)) (unsubscribe func())
	SignInInteractive(ctx context.Context, proof InteractiveProof) (*Session, error)
	SignInWithCredentials(ctx context.Context, email, password string) (*Session, error)
	CreateAccount(ctx context.Context, email, password string) (*Session, error)
	UpdateProfile(ctx context.Context, session *Session, profile ProfileUpdate) error
	SignOut(ctx context.Context) error
}

// InteractiveProof is what the provider hands back at the end of an
// interactive sign-in (authorization code plus the state we issued).
type InteractiveProof struct {
	Provider string
	Code     string
	State    string
	Error    string
}

// ProfileUpdate holds the mutable profile attributes
type ProfileUpdate struct {
	DisplayName string
}

// Navigator is the view router as seen by guards and forms.
type Navigator interface {
	Navigate(path string, opts NavigateOptions) error
	Location() Location
}

// Config holds application options
type Config interface {
	GetAddr() string
	GetDSN() string
	GetSigningKey() string
	GetTokenExpiration() int
	GetProviderTimeout() time.Duration
	GetStateKey() string
	GetStateHMACKey() string
	GetDefaultLang() string
	GetSecureCookies() bool
	GetDebug() bool
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	d.print("ERR", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.print("WRN", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	d.print("INF", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.print("DBG", msg, args)
}

func (defLogger) print(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString("[" + level + "] PMS " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}
