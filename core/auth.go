package core

import (
	"context"
	"errors"
)

// Identity represents the authenticated principal behind one request. It is
// resolved fresh per request and never cached.
type Identity struct {
	ID       int64
	Username string
	Email    string
}

var (
	// ErrInvalidCredentials is returned when the login email/password is wrong.
	// The same error covers unknown email and wrong password so callers cannot
	// probe which accounts exist.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrUnauthorized is returned when a presented token cannot be resolved to
	// an account, regardless of the specific parse failure.
	ErrUnauthorized = errors.New("could not validate credentials")
	// ErrForbidden is returned when an authenticated caller targets a resource
	// they do not own.
	ErrForbidden = errors.New("unauthorized")
)

// Authenticator turns (email, plaintext password) into a verified identity.
type Authenticator struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

func NewAuthenticator(accounts AccountRepository, hasher PasswordHasher) *Authenticator {
	return &Authenticator{accounts: accounts, hasher: hasher}
}

// Authenticate performs a single store read and a hash comparison; it never
// mutates the store.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	acc, err := a.accounts.FindByEmail(ctx, email)
	if err != nil || acc == nil {
		return Identity{}, ErrInvalidCredentials
	}
	if !a.hasher.Verify(password, acc.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: acc.ID, Username: acc.Username, Email: acc.Email}, nil
}

// IdentityResolver reconstructs the caller's identity from a bearer token.
type IdentityResolver struct {
	codec    *TokenCodec
	accounts AccountRepository
}

func NewIdentityResolver(codec *TokenCodec, accounts AccountRepository) *IdentityResolver {
	return &IdentityResolver{codec: codec, accounts: accounts}
}

// Resolve parses the token and looks up the subject email in the account
// store. A token that parses and is unexpired still fails here when its
// subject no longer resolves to a stored account.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := r.codec.Parse(token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	email := claims["sub"]
	if email == "" {
		return Identity{}, ErrUnauthorized
	}
	acc, err := r.accounts.FindByEmail(ctx, email)
	if err != nil || acc == nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: acc.ID, Username: acc.Username, Email: acc.Email}, nil
}

// Refresh issues a brand-new token for an already-resolved identity. The
// prior token stays valid until its own expiry lapses; the scheme is
// stateless and keeps no revocation list.
func (r *IdentityResolver) Refresh(identity Identity) (string, error) {
	return r.codec.Issue(map[string]string{"sub": identity.Email})
}

// EnsureOwner rejects access when the caller is not the owner of the target
// account resource. Pure comparison, no I/O.
func EnsureOwner(caller Identity, targetID int64) error {
	if caller.ID != targetID {
		return ErrForbidden
	}
	return nil
}
