package handler

import (
	"strings"

	"github.com/99minutos/account-service/internal/core/domain"
)

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// normalizer is implemented by requests that clean up fields before validation.
type normalizer interface {
	normalize()
}

func (r *registerRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = domain.NormalizeEmail(r.Email)
}

func (r *loginRequest) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginResponse struct {
	Message string `json:"message"`
	// Token duplicates the cookie for clients that send Authorization headers.
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	User *domain.User `json:"user"`
}
