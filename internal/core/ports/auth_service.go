package ports

import (
	"context"

	"github.com/investae/investments-api/internal/core/domain"
)

// RegisterInput carries a sign-up request. Caller is the principal resolved on
// the registering request, if any.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	NationalID  string
	Role        string
	Caller      *domain.Principal
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token    string
	Username string
	Role     domain.Role
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Credential, error)
	Authenticate(ctx context.Context, username, password string) (*domain.Credential, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ListUsers(ctx context.Context) ([]*domain.Credential, error)
}
