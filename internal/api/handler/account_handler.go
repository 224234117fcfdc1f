package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserIDKey is the echo context key under which the auth middleware stores
// the authenticated user id.
const UserIDKey = "user_id"

type AccountHandler struct {
	accounts ports.AccountService
	cookie   CookieConfig
}

func NewAccountHandler(accounts ports.AccountService, cookie CookieConfig) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookie: cookie}
}

// Register creates a new account and starts a session.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/users/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	h.cookie.set(c, token)
	return c.JSON(http.StatusCreated, registerResponse{Message: "user registered", UserID: user.ID})
}

// Login authenticates a user and starts a session.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/users/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, _, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookie.set(c, token)
	return c.JSON(http.StatusOK, loginResponse{Message: "login successful", Token: token})
}

// Logout clears the session cookie.
//
// @Summary      Logout
// @Tags         users
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/users/logout [post]
func (h *AccountHandler) Logout(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	h.cookie.clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "session closed"})
}

// Me returns the profile of the authenticated user.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/users/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: user})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func currentUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(UserIDKey).(string)
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}
	return userID, nil
}
