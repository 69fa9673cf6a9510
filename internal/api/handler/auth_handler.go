package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investae/investments-api/internal/api/metrics"
	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// registerRequest carries no struct tags: AuthService.Register validates the
// national ID before any other field.
type registerRequest struct {
	Username    string `json:"username" minLength:"3" maxLength:"50"`
	Password    string `json:"password" maxLength:"72"`
	DisplayName string `json:"displayName,omitempty" maxLength:"100"`
	Email       string `json:"email,omitempty"`
	NationalID  string `json:"nationalId" example:"12345678909"`
	Role        string `json:"role,omitempty" enums:"USER,ADMIN"`
}

type registerResponse struct {
	Message    string `json:"message"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	NationalID string `json:"nationalId"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	NationalID  string `json:"nationalId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Register creates a new credential.
//
// @Summary      Register a new user
// @Description  Creates a USER credential. Requesting ADMIN requires an ADMIN caller unless self registration is enabled.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
		return err
	}

	cred, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		NationalID:  req.NationalID,
		Role:        req.Role,
		Caller:      caller(c),
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, registerResponse{
		Message:    "user registered",
		Username:   cred.Username,
		Role:       cred.Role.String(),
		NationalID: cred.NationalID.String(),
	})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		// Malformed bodies fail like any other bad login.
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return domain.ErrInvalidCredentials
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindAuthentication {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, loginResponse{Token: res.Token, Username: res.Username, Role: res.Role.String()})
}

// ListUsers returns every registered credential.
//
// @Summary      List users
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/auth/users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	creds, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, userResponse{
			ID:          cred.ID,
			Username:    cred.Username,
			Role:        cred.Role.String(),
			NationalID:  cred.NationalID.String(),
			DisplayName: cred.DisplayName,
			Email:       cred.Email,
			CreatedAt:   cred.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return c.JSON(http.StatusOK, out)
}
