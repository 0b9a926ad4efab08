package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/errors"
	application "tours_backend/service"
)

type AuthHandler struct {
	service      *application.AuthService
	cookieTTL    time.Duration
	secureCookie bool
	logger       *log.Logger
}

func NewAuthHandler(service *application.AuthService, cookieTTL time.Duration, secureCookie bool, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (handler *AuthHandler) setTokenCookie(writer http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     authorization.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   handler.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeSession is the envelope for every endpoint that opens a session:
// the token rides at the top level next to the user.
func (handler *AuthHandler) writeSession(writer http.ResponseWriter, statusCode int, user *domain.User, token string) {
	handler.setTokenCookie(writer, token, time.Now().Add(handler.cookieTTL))
	jsonResponse(writer, statusCode, map[string]interface{}{
		"status": StatusSuccess,
		"token":  token,
		"data":   map[string]interface{}{"user": user},
	})
}

func (handler *AuthHandler) Register(writer http.ResponseWriter, req *http.Request) {
	var request domain.RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	user, token, err := handler.service.Register(req.Context(), &request)
	if err != nil {
		WriteError(writer, err)
		return
	}

	handler.writeSession(writer, http.StatusCreated, user, token)
}

func (handler *AuthHandler) Login(writer http.ResponseWriter, req *http.Request) {
	var request domain.LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	user, token, err := handler.service.Login(req.Context(), &request)
	if err != nil {
		handler.logger.WithField("identifier", request.Identifier).Warn("failed login")
		WriteError(writer, err)
		return
	}

	handler.writeSession(writer, http.StatusOK, user, token)
}

// Logout overwrites the session cookie with a short-lived dummy value.
func (handler *AuthHandler) Logout(writer http.ResponseWriter, req *http.Request) {
	handler.setTokenCookie(writer, "loggedout", time.Now().Add(10*time.Second))
	jsonResponse(writer, http.StatusOK, map[string]interface{}{"status": StatusSuccess})
}

func (handler *AuthHandler) ForgotPassword(writer http.ResponseWriter, req *http.Request) {
	var request domain.ForgotPasswordRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	resetURLBase := fmt.Sprintf("%s://%s/api/v1/users/resetPassword", scheme, req.Host)

	if err := handler.service.ForgotPassword(req.Context(), request.Email, resetURLBase); err != nil {
		WriteError(writer, err)
		return
	}

	jsonResponse(writer, http.StatusOK, map[string]interface{}{
		"status":  StatusSuccess,
		"message": "Token sent to email!",
	})
}

func (handler *AuthHandler) ResetPassword(writer http.ResponseWriter, req *http.Request) {
	var request domain.ResetPasswordRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	user, token, err := handler.service.ResetPassword(req.Context(), mux.Vars(req)["token"], &request)
	if err != nil {
		WriteError(writer, err)
		return
	}

	handler.writeSession(writer, http.StatusOK, user, token)
}

func (handler *AuthHandler) UpdatePassword(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	var request domain.UpdatePasswordRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		WriteError(writer, errors.New(errors.InvalidRequestFormatError, 400))
		return
	}

	token, err := handler.service.UpdatePassword(req.Context(), user, &request)
	if err != nil {
		WriteError(writer, err)
		return
	}

	handler.writeSession(writer, http.StatusOK, user, token)
}
