package pms

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Accounts interface {
	Create(ctx context.Context, record *Account) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByProvider(ctx context.Context, provider, providerUserID string) (*Account, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
	LinkProvider(ctx context.Context, id uuid.UUID, provider, providerUserID string) error
	TrackSuccessfulLogin(ctx context.Context, record *Account) error
	TrackAttemptedLogin(ctx context.Context, record *Account) error
}

type accounts struct {
	repo repository.Repository[*Account]
	db   *bun.DB
}

var _ Accounts = (*accounts)(nil)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{repo: repo, db: db}
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeEmail(record.Email)
	return a.repo.Create(ctx, record)
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.repo.GetByIdentifier(ctx, normalizeEmail(email))
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetByProvider(ctx context.Context, provider, providerUserID string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *accounts) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("display_name = ?", name).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *accounts) LinkProvider(ctx context.Context, id uuid.UUID, provider, providerUserID string) error {
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("provider = ?", provider).
		Set("provider_user_id = ?", providerUserID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, record *Account) error {
	// NOTE: reset through raw SQL so NULL and zero values are written.
	_, err := a.db.NewRaw(`
		UPDATE "accounts"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE "id" = ?;
	`, time.Now(), record.ID).Exec(ctx)
	return err
}

func (a *accounts) TrackAttemptedLogin(ctx context.Context, record *Account) error {
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("login_attempts = login_attempts + 1").
		Set("login_attempt_at = ?", time.Now()).
		Where("id = ?", record.ID).
		Exec(ctx)
	return err
}

// IsNotFound reports whether err means no record matched.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err) ||
		goerrors.Is(err, sql.ErrNoRows) ||
		repository.IsRecordNotFound(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
