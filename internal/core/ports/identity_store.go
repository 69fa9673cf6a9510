package ports

import (
	"context"

	"github.com/investae/investments-api/internal/core/domain"
)

// IdentityStore persists credentials. Lookups that miss return
// domain.ErrCredentialNotFound; Create reports a uniqueness violation
// discovered by the backend as a domain conflict error.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.Credential, error)
	FindByEmail(ctx context.Context, email string) (*domain.Credential, error)
	FindByNationalID(ctx context.Context, id domain.NationalID) (*domain.Credential, error)
	Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
}

// PasswordHasher computes and checks one-way password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}
