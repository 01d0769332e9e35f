package auth

import (
	"context"
	"time"
)

// AuthoritySession is the token pair the credential authority issues after a
// successful authentication or refresh.
type AuthoritySession struct {
	SubjectID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// CredentialAuthority is the external system of record for passwords and
// token issuance. This core never sees password hashes; it exchanges
// credentials for subject ids and token pairs. The local actor store shares
// the authority's subject-id space.
//
// Callers are expected to bound every call with a context deadline; the
// authority is the only blocking dependency on the sign-in path.
type CredentialAuthority interface {
	Authenticate(ctx context.Context, email, password string) (AuthoritySession, error)
	CreateAccount(ctx context.Context, email, password string) (subjectID string, err error)
	UpdatePassword(ctx context.Context, subjectID, password string) error
	UpdateEmail(ctx context.Context, subjectID, email string) error
	SendVerificationEmail(ctx context.Context, email string) error
	SendPasswordResetEmail(ctx context.Context, email, redirectTo string) error
	// RefreshSession returns a zero session without error when the refresh
	// token is unusable; refresh is advisory from the caller's perspective.
	RefreshSession(ctx context.Context, refreshToken string) (AuthoritySession, error)
	// VerifyToken returns the subject id for a valid access token, or an
	// empty string when the token does not verify.
	VerifyToken(ctx context.Context, token string) (subjectID string, err error)
	// InvalidateSessions revokes the subject's refresh tokens.
	InvalidateSessions(ctx context.Context, subjectID string) error
}

// InviteMailer delivers invite emails. Outbound delivery is an external
// collaborator; the default implementation only logs.
type InviteMailer interface {
	SendInvite(ctx context.Context, email, code string, role string) error
}
