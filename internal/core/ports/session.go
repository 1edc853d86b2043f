package ports

import "context"

// TokenPair is the pair of credentials issued for one session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenCodec signs and verifies compact self-contained tokens. Two
// independently configured instances exist: a short-lived access codec and a
// long-lived refresh codec.
type TokenCodec interface {
	Sign(subjectID string) (string, error)
	// Verify returns the subject id, or domain.ErrTokenExpired /
	// domain.ErrInvalidToken. It performs no I/O.
	Verify(token string) (string, error)
}

// SessionManager orchestrates token-pair issuance, rotation, and revocation.
type SessionManager interface {
	// Issue mints a new pair and persists the refresh value, overwriting any
	// prior one. On success the stored value equals the returned one.
	Issue(ctx context.Context, userID string) (*TokenPair, error)
	// Rotate exchanges a presented refresh token for a fresh pair. The
	// presented value must match the stored value exactly; a superseded or
	// revoked token fails with domain.ErrInvalidToken even when its
	// signature still verifies. No tokens are issued on failure.
	Rotate(ctx context.Context, presented string) (*TokenPair, error)
	// Revoke clears the stored refresh value for the user.
	Revoke(ctx context.Context, userID string) error
}
