package pms

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// MinPasswordLength is the shortest password the directory accepts.
const MinPasswordLength = 6

// ExternalProfile is the identity returned by an interactive provider.
type ExternalProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
}

// Directory is the account store shared by all clients. It reports
// failures as categorized errors carrying a provider code so views can
// map codes to messages.
type Directory struct {
	accounts  Accounts
	logger    Logger
	sanitizer *bluemonday.Policy
	useHashid bool
}

type DirectoryOption func(*Directory)

func WithDirectoryLogger(l Logger) DirectoryOption {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHashidIDs derives account ids from the email address.
func WithHashidIDs(enabled bool) DirectoryOption {
	return func(d *Directory) {
		d.useHashid = enabled
	}
}

func NewDirectory(accounts Accounts, opts ...DirectoryOption) *Directory {
	d := &Directory{
		accounts:  accounts,
		logger:    defLogger{},
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authenticate checks email and password against the stored account.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	const op = "sign_in"

	if err := validateEmail(email); err != nil {
		return nil, NewProviderError(op, CodeInvalidEmail, err)
	}

	account, err := d.accounts.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewProviderError(op, CodeUserNotFound, err)
		}
		return nil, d.internal(ctx, op, err)
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if tErr := d.accounts.TrackAttemptedLogin(ctx, account); tErr != nil {
			d.logger.Warn("track attempted login", "error", tErr)
		}
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, NewProviderError(op, CodeWrongPassword, err)
		}
		return nil, d.internal(ctx, op, err)
	}

	if err := d.accounts.TrackSuccessfulLogin(ctx, account); err != nil {
		d.logger.Warn("track successful login", "error", err)
	}

	return account, nil
}

// Register creates a password account.
func (d *Directory) Register(ctx context.Context, email, password string) (*Account, error) {
	const op = "create_account"

	if err := validateEmail(email); err != nil {
		return nil, NewProviderError(op, CodeInvalidEmail, err)
	}

	if len(password) < MinPasswordLength {
		return nil, NewProviderError(op, CodeWeakPassword, nil)
	}

	if _, err := d.accounts.GetByEmail(ctx, email); err == nil {
		return nil, NewProviderError(op, CodeEmailAlreadyInUse, nil)
	} else if !IsNotFound(err) {
		return nil, d.internal(ctx, op, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, d.internal(ctx, op, err)
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderPassword,
	}
	if d.useHashid {
		if id, err := hashid.NewUUID(normalizeEmail(email)); err == nil {
			account.ID = id
		}
	}

	created, err := d.accounts.Create(ctx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewProviderError(op, CodeEmailAlreadyInUse, err)
		}
		return nil, d.internal(ctx, op, err)
	}
	return created, nil
}

// UpdateDisplayName stores a sanitized display name.
func (d *Directory) UpdateDisplayName(ctx context.Context, userID, name string) (string, error) {
	const op = "update_profile"

	id, err := uuid.Parse(userID)
	if err != nil {
		return "", NewProviderError(op, CodeUserNotFound, err)
	}

	clean := strings.TrimSpace(d.sanitizer.Sanitize(name))
	if err := d.accounts.UpdateDisplayName(ctx, id, clean); err != nil {
		return "", d.internal(ctx, op, err)
	}
	return clean, nil
}

// Link resolves the account behind an external profile: first by provider
// id, then by verified email, otherwise a new account is created.
func (d *Directory) Link(ctx context.Context, profile *ExternalProfile) (*Account, error) {
	const op = "sign_in_interactive"

	if profile == nil || profile.ProviderUserID == "" {
		return nil, NewProviderError(op, CodeInteractiveFailure, goerrors.New("missing provider profile", goerrors.CategoryBadInput))
	}

	account, err := d.accounts.GetByProvider(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil {
		return account, nil
	}
	if !IsNotFound(err) {
		return nil, d.internal(ctx, op, err)
	}

	if profile.Email == "" || !profile.EmailVerified {
		return nil, NewProviderError(op, CodeInteractiveFailure, goerrors.New("provider email not verified", goerrors.CategoryAuth))
	}

	account, err = d.accounts.GetByEmail(ctx, profile.Email)
	if err == nil {
		if err := d.accounts.LinkProvider(ctx, account.ID, profile.Provider, profile.ProviderUserID); err != nil {
			return nil, d.internal(ctx, op, err)
		}
		return account, nil
	}
	if !IsNotFound(err) {
		return nil, d.internal(ctx, op, err)
	}

	name := strings.TrimSpace(d.sanitizer.Sanitize(profile.Name))
	if name == "" {
		name = DisplayNameFromEmail(profile.Email)
	}

	return d.accounts.Create(ctx, &Account{
		Email:          profile.Email,
		DisplayName:    name,
		PasswordHash:   RandomPasswordHash(),
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
	})
}

func (d *Directory) internal(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); goerrors.Is(ctxErr, context.DeadlineExceeded) {
		return NewProviderError(op, CodeTimeout, err)
	}
	d.logger.Error("directory operation failed", "operation", op, "error", err)
	return NewProviderError(op, CodeInternal, err)
}

func validateEmail(email string) error {
	return validation.Validate(strings.TrimSpace(email), validation.Required, is.Email)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
