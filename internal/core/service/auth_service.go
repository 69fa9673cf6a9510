package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

const (
	minUsernameLen    = 3
	maxUsernameLen    = 50
	maxPasswordBytes  = 72 // bcrypt input limit
	maxDisplayNameLen = 100
)

var fieldCheck = validator.New()

// AuthOptions tunes registration behaviour.
type AuthOptions struct {
	// AllowAdminSelfRegistration lets an unauthenticated caller request the
	// ADMIN role at sign-up.
	AllowAdminSelfRegistration bool
	Clock                      ports.Clock
	// Retry receives national IDs whose investor record could not be
	// provisioned during registration. Optional.
	Retry ports.ProvisioningQueue
}

// AuthService implements registration and login.
type AuthService struct {
	store     ports.IdentityStore
	investors ports.InvestorRepository
	hasher    ports.PasswordHasher
	tokens    ports.TokenCodec
	opts      AuthOptions
	logger    zerolog.Logger
}

func NewAuthService(
	store ports.IdentityStore,
	investors ports.InvestorRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	opts AuthOptions,
	logger zerolog.Logger,
) *AuthService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &AuthService{
		store:     store,
		investors: investors,
		hasher:    hasher,
		tokens:    tokens,
		opts:      opts,
		logger:    logger,
	}
}

// Register validates (national ID first), checks uniqueness in order
// (username, email, national ID), persists the credential and provisions the
// matching investor record.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Credential, error) {
	nationalID, err := domain.ParseNationalID(in.NationalID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLen:
		return nil, domain.NewValidationError("username", "username must have at least 3 characters")
	case n > maxUsernameLen:
		return nil, domain.NewValidationError("username", "username must have at most 50 characters")
	}
	switch {
	case in.Password == "":
		return nil, domain.NewValidationError("password", "password is required")
	case len(in.Password) > maxPasswordBytes:
		return nil, domain.NewValidationError("password", "password must be at most 72 bytes")
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, domain.NewValidationError("displayName", "display name must have at most 100 characters")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && fieldCheck.Var(email, "email") != nil {
		return nil, domain.NewValidationError("email", "email is not a valid address")
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin && !s.opts.AllowAdminSelfRegistration && (in.Caller == nil || !in.Caller.IsAdmin()) {
		s.logger.Warn().Str("username", username).Msg("rejected ADMIN role request from non-admin caller")
		return nil, domain.ErrForbidden
	}

	if err := uniqueness(s.store.FindByUsername(ctx, username)).as("username", "username taken"); err != nil {
		return nil, err
	}
	if email != "" {
		if err := uniqueness(s.store.FindByEmail(ctx, email)).as("email", "email taken"); err != nil {
			return nil, err
		}
	}
	if err := uniqueness(s.store.FindByNationalID(ctx, nationalID)).as("nationalId", "national ID already registered"); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.NewInternalError("hash password", err)
	}

	created, err := s.store.Create(ctx, &domain.Credential{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		NationalID:   nationalID,
		DisplayName:  displayName,
		Email:        email,
		CreatedAt:    s.opts.Clock().UTC(),
	})
	if err != nil {
		// The store may discover a uniqueness race our pre-checks missed.
		if domain.KindOf(err) == domain.KindConflict {
			return nil, err
		}
		return nil, domain.NewInternalError("persist credential", err)
	}

	if provisioned, err := s.investors.EnsureInvestor(ctx, nationalID); err != nil {
		evt := s.logger.Error().Err(err).Str("username", username)
		if s.opts.Retry != nil {
			evt = evt.Bool("retry_queued", s.opts.Retry.Enqueue(nationalID))
		}
		evt.Msg("investor provisioning failed")
	} else if provisioned {
		s.logger.Info().Str("username", username).Msg("investor record provisioned")
	}

	s.logger.Info().Str("username", username).Str("role", role.String()).Msg("credential registered")
	return created, nil
}

// lookup is the outcome of a uniqueness pre-check.
type lookup struct {
	cred *domain.Credential
	err  error
}

func uniqueness(cred *domain.Credential, err error) lookup { return lookup{cred: cred, err: err} }

// as maps a hit to a conflict on field, a miss to nil and a store failure to an internal error.
func (l lookup) as(field, msg string) error {
	switch {
	case l.err == nil && l.cred != nil:
		return domain.NewConflictError(field, msg)
	case l.err == nil, errors.Is(l.err, domain.ErrCredentialNotFound):
		return nil
	default:
		return domain.NewInternalError("identity lookup", l.err)
	}
}

// Authenticate verifies a password against the stored hash. Unknown usernames
// and wrong passwords fail identically with domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Credential, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.NewInternalError("identity lookup", err)
	}
	if cred == nil || !s.hasher.Verify(cred.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return cred, nil
}

// Login authenticates and then signs a token for the credential.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	cred, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(cred.Username, cred.Role.String(), s.opts.Clock())
	if err != nil {
		return nil, domain.NewInternalError("issue token", err)
	}

	s.logger.Info().Str("username", cred.Username).Msg("login succeeded")
	return &ports.LoginResult{Token: token, Username: cred.Username, Role: cred.Role}, nil
}

// ListUsers returns every credential. Callers gate it to ADMIN.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.Credential, error) {
	creds, err := s.store.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("list credentials", err)
	}
	return creds, nil
}
