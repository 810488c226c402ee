package pms

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService carries a Session between requests as a signed JWT.
type TokenService interface {
	Generate(session *Session) (string, error)
	Validate(raw string) (*Session, error)
	Expiration() time.Duration
}

// SessionClaims is the JWT payload of the session cookie
type SessionClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"prv,omitempty"`
}

type tokenService struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	logger     Logger
}

const defaultIssuer = "pms"

// NewTokenService signs with HS256. expirationHours <= 0 means 24h.
func NewTokenService(signingKey []byte, expirationHours int, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &tokenService{
		signingKey: signingKey,
		expiration: time.Duration(expirationHours) * time.Hour,
		issuer:     defaultIssuer,
		logger:     logger,
	}
}

func (ts *tokenService) Expiration() time.Duration {
	return ts.expiration
}

func (ts *tokenService) Generate(session *Session) (string, error) {
	if !session.Present() {
		return "", goerrors.New("cannot sign an absent session", goerrors.CategoryBadInput)
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		Name:     session.DisplayName,
		Email:    session.Email,
		Provider: session.Provider,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}
	return signed, nil
}

func (ts *tokenService) Validate(raw string) (*Session, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("session token with unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithIssuer(ts.issuer))

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrUnableToDecodeSession
	}

	return &Session{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Provider:    claims.Provider,
	}, nil
}
