// Package identity is the built-in credential authority: bcrypt password
// hashes, HS256 access tokens, and rotating refresh tokens. Deployments that
// delegate credentials to an external provider swap this package out behind
// the same interface.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"caringcompass.org/internal/auth"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
	tokenIssuer       = "caringcompass"
)

var errBadCredentials = errors.New("identity: bad credentials")

// Account is a credential record. The password is stored only as a bcrypt
// hash.
type Account struct {
	SubjectID    string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// AccountStore persists credential records.
type AccountStore interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindBySubject(ctx context.Context, subjectID string) (Account, error)
	UpdatePassword(ctx context.Context, subjectID string, hash []byte) error
	UpdateEmail(ctx context.Context, subjectID, email string) error
}

// RefreshToken is the at-rest form of a refresh token: the secret half is
// kept only as a sha256 digest, so a leaked store cannot replay sessions.
type RefreshToken struct {
	ID         string
	SubjectID  string
	SecretHash string
	ExpiresAt  time.Time
	Revoked    bool
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	Save(ctx context.Context, token RefreshToken) error
	Find(ctx context.Context, id string) (RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForSubject(ctx context.Context, subjectID string) error
}

// Mailer delivers the emails the authority originates.
type Mailer interface {
	SendVerification(ctx context.Context, email string) error
	SendPasswordReset(ctx context.Context, email, redirectTo string) error
}

// Provider implements auth.CredentialAuthority.
type Provider struct {
	accounts AccountStore
	tokens   RefreshTokenStore
	mailer   Mailer

	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ProviderOption configures Provider behavior.
type ProviderOption func(*Provider)

// WithAccessTTL sets the access-token lifetime.
func WithAccessTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		if ttl > 0 {
			p.accessTTL = ttl
		}
	}
}

// WithRefreshTTL sets the refresh-token lifetime.
func WithRefreshTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		if ttl > 0 {
			p.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ProviderOption {
	return func(p *Provider) {
		if fn != nil {
			p.now = fn
		}
	}
}

// NewProvider builds the authority. The signing key must be non-empty; access
// tokens are HS256-signed with it.
func NewProvider(accounts AccountStore, tokens RefreshTokenStore, mailer Mailer, signingKey []byte, opts ...ProviderOption) (*Provider, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("identity: signing key required")
	}
	p := &Provider{
		accounts:   accounts,
		tokens:     tokens,
		mailer:     mailer,
		signingKey: signingKey,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var _ auth.CredentialAuthority = (*Provider)(nil)

func (p *Provider) Authenticate(ctx context.Context, email, password string) (auth.AuthoritySession, error) {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		// Burn a comparison anyway so a miss costs the same as a mismatch.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return auth.AuthoritySession{}, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return auth.AuthoritySession{}, errBadCredentials
	}
	return p.issueSession(ctx, account.SubjectID)
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if _, err := p.accounts.FindByEmail(ctx, email); err == nil {
		return "", auth.ErrAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}
	account := Account{
		SubjectID:    uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return "", fmt.Errorf("identity: create account: %w", err)
	}
	return account.SubjectID, nil
}

func (p *Provider) UpdatePassword(ctx context.Context, subjectID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	if err := p.accounts.UpdatePassword(ctx, subjectID, hash); err != nil {
		return fmt.Errorf("identity: update password: %w", err)
	}
	// A password change orphans every outstanding session.
	return p.tokens.RevokeAllForSubject(ctx, subjectID)
}

func (p *Provider) UpdateEmail(ctx context.Context, subjectID, email string) error {
	if err := p.accounts.UpdateEmail(ctx, subjectID, email); err != nil {
		return fmt.Errorf("identity: update email: %w", err)
	}
	return nil
}

func (p *Provider) SendVerificationEmail(ctx context.Context, email string) error {
	if p.mailer == nil {
		return nil
	}
	return p.mailer.SendVerification(ctx, email)
}

func (p *Provider) SendPasswordResetEmail(ctx context.Context, email, redirectTo string) error {
	if p.mailer == nil {
		return nil
	}
	return p.mailer.SendPasswordReset(ctx, email, redirectTo)
}

// RefreshSession rotates the token pair: the presented token is revoked and a
// fresh pair issued. An unusable token yields a zero session without error.
func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (auth.AuthoritySession, error) {
	id, secret, ok := splitRefreshToken(refreshToken)
	if !ok {
		return auth.AuthoritySession{}, nil
	}
	stored, err := p.tokens.Find(ctx, id)
	if err != nil {
		return auth.AuthoritySession{}, nil
	}
	if stored.Revoked || !p.now().Before(stored.ExpiresAt) {
		return auth.AuthoritySession{}, nil
	}
	if !hmac.Equal([]byte(hashSecret(secret)), []byte(stored.SecretHash)) {
		return auth.AuthoritySession{}, nil
	}
	if err := p.tokens.Revoke(ctx, id); err != nil {
		return auth.AuthoritySession{}, nil
	}
	return p.issueSession(ctx, stored.SubjectID)
}

func (p *Provider) VerifyToken(_ context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", t.Header["alg"])
		}
		return p.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid {
		return "", nil
	}
	return claims.Subject, nil
}

func (p *Provider) InvalidateSessions(ctx context.Context, subjectID string) error {
	return p.tokens.RevokeAllForSubject(ctx, subjectID)
}

func (p *Provider) issueSession(ctx context.Context, subjectID string) (auth.AuthoritySession, error) {
	now := p.now().UTC()
	expiresAt := now.Add(p.accessTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return auth.AuthoritySession{}, fmt.Errorf("identity: sign token: %w", err)
	}

	secret, err := newSecret()
	if err != nil {
		return auth.AuthoritySession{}, err
	}
	refresh := RefreshToken{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		SecretHash: hashSecret(secret),
		ExpiresAt:  now.Add(p.refreshTTL),
	}
	if err := p.tokens.Save(ctx, refresh); err != nil {
		return auth.AuthoritySession{}, fmt.Errorf("identity: save refresh token: %w", err)
	}

	return auth.AuthoritySession{
		SubjectID:    subjectID,
		AccessToken:  accessToken,
		RefreshToken: refresh.ID + "." + secret,
		ExpiresAt:    expiresAt,
	}, nil
}

// dummyHash is compared against when the email is unknown, so the two
// rejection paths take comparable time.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("identity: random secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func splitRefreshToken(token string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(token, ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
