package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"tours_backend/authorization"
	"tours_backend/domain"
	application "tours_backend/service"
)

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type sessionEnvelope struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   struct {
		User map[string]interface{} `json:"user"`
	} `json:"data"`
}

func newAuthFixture(users *fakeUserStore, mailer *fakeMailer) *AuthHandler {
	service := application.NewAuthService(users, mailer, time.Hour, testTracer(), testLogger())
	return NewAuthHandler(service, time.Hour, false, testLogger())
}

func seedUser(t *testing.T, users *fakeUserStore, name, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &domain.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Role:      domain.RoleUser,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	users.docs[user.ID] = user
	return user
}

func TestSignupCreatesSessionWithoutLeakingPassword(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	users := newFakeUserStore()
	mailer := &fakeMailer{}
	handler := newAuthFixture(users, mailer)

	body := `{"name":"Jonas Schmedtmann","email":"Jonas@Example.com","password":"Password1!","passwordConfirm":"Password1!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if envelope.Status != StatusSuccess {
		t.Errorf("expected status success, got %q", envelope.Status)
	}
	if envelope.Token == "" {
		t.Error("expected a session token in the envelope")
	}
	if _, leaked := envelope.Data.User["password"]; leaked {
		t.Error("password must not appear in the response")
	}
	if envelope.Data.User["email"] != "jonas@example.com" {
		t.Errorf("expected lowercased email, got %v", envelope.Data.User["email"])
	}
	if envelope.Data.User["role"] != "user" {
		t.Errorf("expected default role user, got %v", envelope.Data.User["role"])
	}

	cookie := findCookie(recorder, authorization.CookieName)
	if cookie == nil {
		t.Fatal("expected the session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be http-only")
	}

	if len(mailer.welcomes) != 1 {
		t.Errorf("expected one welcome mail, got %d", len(mailer.welcomes))
	}
}

func TestSignupAcceptsSingleCharacterName(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := newAuthFixture(newFakeUserStore(), &fakeMailer{})

	body := `{"name":"A","email":"a@x.com","password":"Aa1!aaaa","passwordConfirm":"Aa1!aaaa"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if envelope.Data.User["name"] != "A" {
		t.Errorf("expected the name to be stored as given, got %v", envelope.Data.User["name"])
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	users := newFakeUserStore()
	users.insertErr = duplicateKeyErr
	handler := newAuthFixture(users, &fakeMailer{})

	body := `{"name":"Jonas Schmedtmann","email":"jonas@example.com","password":"Password1!","passwordConfirm":"Password1!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a duplicate email, got %d", recorder.Code)
	}
	assertFailEnvelope(t, recorder)
}

func TestSignupMismatchedPasswords(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := newAuthFixture(newFakeUserStore(), &fakeMailer{})

	body := `{"name":"Jonas Schmedtmann","email":"jonas@example.com","password":"Password1!","passwordConfirm":"Different1!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestSignupWeakPassword(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := newAuthFixture(newFakeUserStore(), &fakeMailer{})

	body := `{"name":"Jonas Schmedtmann","email":"jonas@example.com","password":"weak","passwordConfirm":"weak"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a weak password, got %d", recorder.Code)
	}
}

func TestLogin(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	users := newFakeUserStore()
	seedUser(t, users, "jonas", "jonas@example.com", "Password1!")
	handler := newAuthFixture(users, &fakeMailer{})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"by email", `{"identifier":"jonas@example.com","password":"Password1!"}`, http.StatusOK},
		{"by name", `{"identifier":"jonas","password":"Password1!"}`, http.StatusOK},
		{"wrong password", `{"identifier":"jonas@example.com","password":"Wrong1!aa"}`, http.StatusUnauthorized},
		{"unknown user", `{"identifier":"nobody@example.com","password":"Password1!"}`, http.StatusNotFound},
		{"missing fields", `{"identifier":"","password":""}`, http.StatusBadRequest},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(c.body))
			recorder := httptest.NewRecorder()
			handler.Login(recorder, req)

			if recorder.Code != c.want {
				t.Errorf("expected %d, got %d: %s", c.want, recorder.Code, recorder.Body.String())
			}
			if c.want == http.StatusOK && findCookie(recorder, authorization.CookieName) == nil {
				t.Error("expected the session cookie to be set")
			}
		})
	}
}

func TestLogoutOverwritesCookie(t *testing.T) {
	handler := newAuthFixture(newFakeUserStore(), &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/logout", nil)
	recorder := httptest.NewRecorder()
	handler.Logout(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	cookie := findCookie(recorder, authorization.CookieName)
	if cookie == nil {
		t.Fatal("expected the session cookie to be overwritten")
	}
	if cookie.Value != "loggedout" {
		t.Errorf("expected dummy cookie value, got %q", cookie.Value)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	users := newFakeUserStore()
	user := seedUser(t, users, "jonas", "jonas@example.com", "Password1!")
	mailer := &fakeMailer{}
	handler := newAuthFixture(users, mailer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/forgotPassword",
		strings.NewReader(`{"email":"jonas@example.com"}`))
	recorder := httptest.NewRecorder()
	handler.ForgotPassword(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("expected one reset mail, got %d", len(mailer.resets))
	}
	if user.PasswordResetToken == "" {
		t.Error("expected a hashed reset token on the user record")
	}
}

func TestForgotPasswordMailFailureRollsBack(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	users := newFakeUserStore()
	user := seedUser(t, users, "jonas", "jonas@example.com", "Password1!")
	handler := newAuthFixture(users, &fakeMailer{sendErr: errSMTPDown})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/forgotPassword",
		strings.NewReader(`{"email":"jonas@example.com"}`))
	recorder := httptest.NewRecorder()
	handler.ForgotPassword(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when the mail can not be sent, got %d", recorder.Code)
	}
	if user.PasswordResetToken != "" {
		t.Error("expected the reset token to be cleared after the mail failure")
	}
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func assertFailEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body.Status != StatusFail {
		t.Errorf("expected status fail, got %q", body.Status)
	}
	if body.Message == "" {
		t.Error("expected a message in the error envelope")
	}
}
