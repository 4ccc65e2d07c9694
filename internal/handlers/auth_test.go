package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrimitra/agrimitra-backend/internal/middleware"
	"github.com/agrimitra/agrimitra-backend/internal/models"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/internal/services"
)

type memoryRepo struct {
	users map[string]*models.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]*models.User{}}
}

func (r *memoryRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := r.users[id.Hex()]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryRepo) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	if u, err := r.FindByEmail(ctx, identifier); err == nil {
		return u, nil
	}
	return r.FindByUsername(ctx, identifier)
}

func (r *memoryRepo) Create(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	r.users[user.ID.Hex()] = user
	return nil
}

func (r *memoryRepo) Save(_ context.Context, user *models.User) error {
	r.users[user.ID.Hex()] = user
	return nil
}

type recordingMailer struct {
	codes map[string]string
}

func (m *recordingMailer) SendOTP(_ context.Context, to, code string, _ services.OTPPurpose) error {
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[to] = code
	return nil
}

func newTestServer(t *testing.T) (*chi.Mux, *memoryRepo, *recordingMailer) {
	t.Helper()
	repo := newMemoryRepo()
	mailer := &recordingMailer{}
	tokens := services.NewTokenService("test-secret")
	auth := services.NewAuthService(repo, mailer, nil, tokens)
	handler := NewAuthHandler(auth, repo)

	r := chi.NewRouter()
	r.Post("/api/auth/register", handler.Register)
	r.Post("/api/auth/verify-email", handler.VerifyEmail)
	r.Post("/api/auth/resend-otp", handler.ResendOTP)
	r.Post("/api/auth/login", handler.Login)
	r.Post("/api/auth/forgot-password", handler.ForgotPassword)
	r.Post("/api/auth/verify-reset-otp", handler.VerifyResetOTP)
	r.Post("/api/auth/reset-password", handler.ResetPassword)
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(tokens, repo))
		r.Post("/api/auth/setup", handler.SetupProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, repo))
		r.Get("/api/auth/me", handler.Me)
	})
	return r, repo, mailer
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, header map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func registerAndVerify(t *testing.T, r http.Handler, mailer *recordingMailer, fullName, email string) string {
	t.Helper()
	rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": fullName, "email": email, "password": "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, r, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": email, "otp": mailer.codes[email],
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return body["token"].(string)
}

func TestRegisterEndpoint(t *testing.T) {
	r, _, _ := newTestServer(t)

	rec, body := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": "Jane Farmer", "email": "JANE@Example.com ", "password": "secret1",
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "jane@example.com", body["email"])

	rec, body = doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": "Jo", "email": "jo@example.com", "password": "secret1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestVerifyEmailEndpoint(t *testing.T) {
	r, _, mailer := newTestServer(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": "Jane Farmer", "email": "jane@example.com", "password": "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, r, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "jane@example.com", "otp": mailer.codes["jane@example.com"],
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "janefarmer", user["username"])
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotContains(t, user, "password")

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "jane@example.com", "otp": "000000",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	r, _, mailer := newTestServer(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": "Jane Farmer", "email": "jane@example.com", "password": "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("unverified gets 403 with routing info", func(t *testing.T) {
		rec, body := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "jane@example.com", "password": "secret1",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, true, body["notVerified"])
		assert.Equal(t, "jane@example.com", body["email"])
	})

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "jane@example.com", "otp": mailer.codes["jane@example.com"],
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("verified login returns token and profile", func(t *testing.T) {
		rec, body := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "janefarmer", "password": "secret1",
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("bad credentials get the same 401 either way", func(t *testing.T) {
		rec1, body1 := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "jane@example.com", "password": "wrong",
		}, nil)
		rec2, body2 := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "ghost@example.com", "password": "secret1",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec1.Code)
		assert.Equal(t, http.StatusUnauthorized, rec2.Code)
		assert.Equal(t, body1["error"], body2["error"])
	})
}

func TestPasswordResetEndpoints(t *testing.T) {
	r, _, mailer := newTestServer(t)
	registerAndVerify(t, r, mailer, "Jane Farmer", "jane@example.com")

	rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "ghost@example.com",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "jane@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code := mailer.codes["jane@example.com"]

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/verify-reset-otp", map[string]string{
		"email": "jane@example.com", "otp": code,
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "jane@example.com", "otp": code, "newPassword": "newsecret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "jane@example.com", "password": "newsecret",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupEndpoint(t *testing.T) {
	t.Run("bearer token resolves the user", func(t *testing.T) {
		r, repo, mailer := newTestServer(t)
		token := registerAndVerify(t, r, mailer, "Jane Farmer", "jane@example.com")

		rec, body := doJSON(t, r, http.MethodPost, "/api/auth/setup", map[string]interface{}{
			"location": "Nashik", "farmingType": "organic",
		}, map[string]string{"Authorization": "Bearer " + token})

		assert.Equal(t, http.StatusOK, rec.Code)
		user := body["user"].(map[string]interface{})
		assert.Equal(t, "Nashik", user["location"])

		stored, err := repo.FindByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "organic", stored.FarmingType)
	})

	t.Run("username fallback without a token", func(t *testing.T) {
		r, _, mailer := newTestServer(t)
		registerAndVerify(t, r, mailer, "Jane Farmer", "jane@example.com")

		rec, body := doJSON(t, r, http.MethodPost, "/api/auth/setup", map[string]interface{}{
			"username": "janefarmer", "location": "Pune",
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		user := body["user"].(map[string]interface{})
		assert.Equal(t, "Pune", user["location"])
	})

	t.Run("no token and no username", func(t *testing.T) {
		r, _, _ := newTestServer(t)
		rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/setup", map[string]interface{}{
			"location": "Pune",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown username", func(t *testing.T) {
		r, _, _ := newTestServer(t)
		rec, _ := doJSON(t, r, http.MethodPost, "/api/auth/setup", map[string]interface{}{
			"username": "ghost", "location": "Pune",
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMeEndpoint(t *testing.T) {
	r, _, mailer := newTestServer(t)
	token := registerAndVerify(t, r, mailer, "Jane Farmer", "jane@example.com")

	rec, body := doJSON(t, r, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "janefarmer", user["username"])

	rec, _ = doJSON(t, r, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
