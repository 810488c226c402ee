package pms

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultProviderTimeout bounds every call into the identity source.
const DefaultProviderTimeout = 10 * time.Second

// Latch is the busy flag guarding a form against duplicate submissions.
type Latch interface {
	TryAcquire() bool
	Release()
}

// Busy is an in-process Latch.
type Busy struct {
	flag atomic.Bool
}

func (b *Busy) TryAcquire() bool {
	return b.flag.CompareAndSwap(false, true)
}

func (b *Busy) Release() {
	b.flag.Store(false)
}

// Active reports whether a submission is in flight.
func (b *Busy) Active() bool {
	return b.flag.Load()
}

// Credentials is the email/password form payload
type Credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate checks both fields are non-blank after trimming.
func (c Credentials) Validate() error {
	v := Credentials{
		Email:    strings.TrimSpace(c.Email),
		Password: strings.TrimSpace(c.Password),
	}

	err := validation.ValidateStruct(&v,
		validation.Field(&v.Email, validation.Required),
		validation.Field(&v.Password, validation.Required),
	)
	if err == nil {
		return nil
	}

	return NewValidationError(MsgEnterCredentials, validationErrorsToMap(err))
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if goerrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}
	out["form"] = err.Error()
	return out
}

// FormState is the state of a login or signup view.
type FormState string

const (
	FormIdle FormState = "idle"
	FormBusy FormState = "busy"
)

// CredentialForm drives the login and signup views: validation, the busy
// flag, the provider call, and where to go afterwards.
type CredentialForm struct {
	source  IdentitySource
	nav     Navigator
	busy    Latch
	timeout time.Duration
	logger  Logger
	from    string

	mu     sync.Mutex
	failed MessageKey
}

type FormOption func(*CredentialForm)

// WithLatch shares a busy flag between forms, e.g. per client.
func WithLatch(l Latch) FormOption {
	return func(f *CredentialForm) {
		if l != nil {
			f.busy = l
		}
	}
}

func WithProviderTimeout(d time.Duration) FormOption {
	return func(f *CredentialForm) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithFormLogger(l Logger) FormOption {
	return func(f *CredentialForm) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewCredentialForm captures the navigation state present when the view
// opened; its From is where a successful sign-in returns to.
func NewCredentialForm(src IdentitySource, nav Navigator, opts ...FormOption) *CredentialForm {
	f := &CredentialForm{
		source:  src,
		nav:     nav,
		busy:    &Busy{},
		timeout: DefaultProviderTimeout,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		opt(f)
	}

	f.from = SafeReturnPath(nav.Location().State.FromOr(RouteHome))
	return f
}

// From is the path a successful sign-in navigates to.
func (f *CredentialForm) From() string {
	return f.from
}

// Error returns the message key of the last failed submission.
func (f *CredentialForm) Error() MessageKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func (f *CredentialForm) setError(key MessageKey) {
	f.mu.Lock()
	f.failed = key
	f.mu.Unlock()
}

// Login validates creds, signs in and navigates back to From.
func (f *CredentialForm) Login(ctx context.Context, creds Credentials) error {
	return f.submit(ctx, creds, LoginMessage, func(ctx context.Context) error {
		_, err := f.call(ctx, "sign_in", func(ctx context.Context) (*Session, error) {
			return f.source.SignInWithCredentials(ctx, strings.TrimSpace(creds.Email), creds.Password)
		})
		if err != nil {
			return err
		}
		return f.nav.Navigate(f.from, NavigateOptions{Replace: true})
	})
}

// Signup creates the account, fills a default display name, signs the new
// session back out and sends the user to login with a completion notice.
func (f *CredentialForm) Signup(ctx context.Context, creds Credentials) error {
	return f.submit(ctx, creds, SignupMessage, func(ctx context.Context) error {
		email := strings.TrimSpace(creds.Email)

		session, err := f.call(ctx, "create_account", func(ctx context.Context) (*Session, error) {
			return f.source.CreateAccount(ctx, email, creds.Password)
		})
		if err != nil {
			return err
		}

		// The account exists and its session is live. Any failure from here
		// on must still leave the client signed out.
		signedOut := false
		defer func() {
			if signedOut {
				return
			}
			if err := f.source.SignOut(context.WithoutCancel(ctx)); err != nil {
				f.logger.Error("sign out after failed signup", "error", err)
			}
		}()

		if session.Present() && session.DisplayName == "" {
			name := DisplayNameFromEmail(email)
			if _, err := f.call(ctx, "update_profile", func(ctx context.Context) (*Session, error) {
				return nil, f.source.UpdateProfile(ctx, session, ProfileUpdate{DisplayName: name})
			}); err != nil {
				return err
			}
		}

		if _, err := f.call(ctx, "sign_out", func(ctx context.Context) (*Session, error) {
			return nil, f.source.SignOut(ctx)
		}); err != nil {
			return err
		}
		signedOut = true

		return f.nav.Navigate(RouteLogin, NavigateOptions{
			Replace: true,
			State: &NavigationState{
				From:   f.from,
				Notice: NoticeSignupComplete,
			},
		})
	})
}

// Interactive completes a provider-driven sign-in. Every failure maps to
// the same message and the user stays on the login view.
func (f *CredentialForm) Interactive(ctx context.Context, proof InteractiveProof) error {
	if !f.busy.TryAcquire() {
		f.setError(MsgBusy)
		return ErrBusy
	}
	defer f.busy.Release()

	f.setError("")

	_, err := f.call(ctx, "sign_in_interactive", func(ctx context.Context) (*Session, error) {
		return f.source.SignInInteractive(ctx, proof)
	})
	if err == nil {
		err = f.nav.Navigate(f.from, NavigateOptions{Replace: true})
	}
	if err != nil {
		f.logger.Error("interactive sign-in failed", "provider", proof.Provider, "error", err)
		f.setError(MsgGoogleFailed)
		return err
	}
	return nil
}

func (f *CredentialForm) submit(ctx context.Context, creds Credentials, mapErr func(error) MessageKey, run func(context.Context) error) error {
	f.setError("")

	if err := creds.Validate(); err != nil {
		f.setError(MsgEnterCredentials)
		return err
	}

	if !f.busy.TryAcquire() {
		f.setError(MsgBusy)
		return ErrBusy
	}
	defer f.busy.Release()

	if err := run(ctx); err != nil {
		f.logger.Error("credential submission failed", "code", ErrorCode(err), "error", err)
		f.setError(mapErr(err))
		return err
	}
	return nil
}

type result struct {
	session *Session
	err     error
}

// call runs fn under the provider timeout. On timeout fn may still be
// running; it sees the cancelled ctx and AuthClient refuses to store a
// session for it, so the released latch cannot race a late sign-in.
func (f *CredentialForm) call(ctx context.Context, op string, fn func(context.Context) (*Session, error)) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		s, err := fn(ctx)
		done <- result{session: s, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && goerrors.Is(r.err, context.DeadlineExceeded) && ErrorCode(r.err) == "" {
			return nil, NewProviderError(op, CodeTimeout, r.err)
		}
		return r.session, r.err
	case <-ctx.Done():
		if goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewProviderError(op, CodeTimeout, ctx.Err())
		}
		return nil, NewProviderError(op, CodeInternal, ctx.Err())
	}
}

// LoginMessage maps a login failure to the message shown to the user.
func LoginMessage(err error) MessageKey {
	if key, ok := commonMessage(err); ok {
		return key
	}

	switch ErrorCode(err) {
	case CodeInvalidEmail:
		return MsgInvalidEmail
	case CodeUserNotFound:
		return MsgUserNotFound
	case CodeWrongPassword:
		return MsgWrongPassword
	default:
		return MsgLoginFailed
	}
}

// SignupMessage maps a signup failure to the message shown to the user.
func SignupMessage(err error) MessageKey {
	if key, ok := commonMessage(err); ok {
		return key
	}

	switch ErrorCode(err) {
	case CodeEmailAlreadyInUse:
		return MsgEmailInUse
	case CodeWeakPassword:
		return MsgWeakPassword
	case CodeInvalidEmail:
		return MsgInvalidEmail
	default:
		return MsgSignupFailed
	}
}

func commonMessage(err error) (MessageKey, bool) {
	switch {
	case err == nil:
		return "", true
	case IsValidationError(err):
		return MsgEnterCredentials, true
	case goerrors.Is(err, ErrBusy):
		return MsgBusy, true
	case ErrorCode(err) == CodeTimeout:
		return MsgTimeout, true
	}
	return "", false
}

// DisplayNameFromEmail is the default display name for new accounts.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return "PMS User"
	}
	return local
}
