// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/auth/memory"
	"github.com/staffauth/staffauth/internal/auth/mocks"
)

var testSigningKey = []byte("httpapi-test-signing-key-0123456789")

type observed struct {
	route  string
	status int
}

type fixture struct {
	server   *Server
	repo     auth.UserRepository
	hasher   *auth.Argon2idHasher
	tokens   *auth.TokenIssuer
	requests []observed
}

func newFixture(t *testing.T, repo auth.UserRepository, policy auth.CapabilityPolicy) *fixture {
	t.Helper()
	f := &fixture{
		repo:   repo,
		hasher: auth.NewArgon2idHasher(auth.Argon2Params{Iterations: 1, MemoryKiB: 1024, Parallelism: 1}),
	}

	tokens, err := auth.NewTokenIssuer(testSigningKey)
	require.NoError(t, err)
	f.tokens = tokens

	users, err := auth.NewUserService(repo, f.hasher)
	require.NoError(t, err)
	signIn, err := auth.NewSignInService(repo, f.hasher, tokens, time.Hour)
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Users:  users,
		SignIn: signIn,
		Tokens: tokens,
		Policy: policy,
		Observe: func(route string, status int) {
			f.requests = append(f.requests, observed{route, status})
		},
	})
	require.NoError(t, err)
	f.server = srv
	return f
}

func newMemoryFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, memory.NewUserRepository(), nil)
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(auth.Claims{UserID: ulid.Make().String(), Email: "admin@x.com"}, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request and returns the status and raw body.
func (f *fixture) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func registration(email, password string) map[string]any {
	return map[string]any{
		"nom":       "Lovelace",
		"prenom":    "Ada",
		"email":     email,
		"password":  password,
		"role":      "admin",
		"matricule": "E-42",
	}
}

func (f *fixture) register(t *testing.T, email, password string) userResponse {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/api/register-user", registration(email, password), f.token(t))
	require.Equal(t, http.StatusCreated, status, "body: %s", body)
	return decodeJSON[registerResponse](t, body).Result
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.ErrorContains(t, err, "user service is required")
}

func TestSignIn(t *testing.T) {
	f := newMemoryFixture(t)
	user := f.register(t, "a@x.com", "password1")

	t.Run("success", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/signin", map[string]string{"email": "a@x.com", "password": "password1"}, "")
		require.Equal(t, http.StatusOK, status, "body: %s", body)

		res := decodeJSON[map[string]any](t, body)
		assert.EqualValues(t, 3600, res["expiresIn"])
		assert.Equal(t, user.ID, res["_id"])

		claims, err := f.tokens.Verify(res["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantMsg    string
	}{
		{"wrong password", map[string]string{"email": "a@x.com", "password": "wrong"}, http.StatusUnauthorized, "password is incorrect"},
		{"unknown account", map[string]string{"email": "nobody@x.com", "password": "password1"}, http.StatusUnauthorized, "account does not exist"},
		{"missing fields", map[string]string{}, http.StatusBadRequest, "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/signin", tt.body, "")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, decodeJSON[errorResponse](t, body).Message)
			assert.NotContains(t, string(body), "token")
		})
	}

	t.Run("disabled account", func(t *testing.T) {
		status, _ := f.do(t, http.MethodPut, "/api/update-user/"+user.ID, map[string]any{"etat": true}, f.token(t))
		require.Equal(t, http.StatusOK, status)

		status, body := f.do(t, http.MethodPost, "/api/signin", map[string]string{"email": "a@x.com", "password": "password1"}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "account is disabled", decodeJSON[errorResponse](t, body).Message)

		status, body = f.do(t, http.MethodPost, "/api/signin", map[string]string{"email": "a@x.com", "password": "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "password is incorrect", decodeJSON[errorResponse](t, body).Message)
	})
}

var protectedRoutes = []struct {
	method string
	path   string
}{
	{http.MethodPost, "/api/register-user"},
	{http.MethodGet, "/api/"},
	{http.MethodGet, "/api/read-user/01HZXJ5Q8T0000000000000000"},
	{http.MethodGet, "/api/user-profile/01HZXJ5Q8T0000000000000000"},
	{http.MethodPut, "/api/update-user/01HZXJ5Q8T0000000000000000"},
	{http.MethodPut, "/api/update/01HZXJ5Q8T0000000000000000"},
	{http.MethodDelete, "/api/delete-user/01HZXJ5Q8T0000000000000000"},
}

func TestProtectedRoutes_RejectBeforeStore(t *testing.T) {
	// The mock repository has no expectations, so any store call fails the test.
	f := newFixture(t, mocks.NewMockUserRepository(t), nil)

	expired, err := auth.NewTokenIssuer(testSigningKey, auth.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	require.NoError(t, err)
	expiredToken, _, err := expired.Issue(auth.Claims{UserID: ulid.Make().String()}, time.Hour)
	require.NoError(t, err)

	// Our header and payload with a signature made under another key.
	foreign, err := auth.NewTokenIssuer([]byte("some-other-signing-key-0123456789abc"))
	require.NoError(t, err)
	foreignToken, _, err := foreign.Issue(auth.Claims{UserID: ulid.Make().String()}, time.Hour)
	require.NoError(t, err)
	ours := f.token(t)
	tampered := ours[:strings.LastIndex(ours, ".")] + foreignToken[strings.LastIndex(foreignToken, "."):]

	tokens := map[string]string{
		"no token":       "",
		"garbage token":  "not-a-jwt",
		"expired token":  expiredToken,
		"tampered token": tampered,
	}

	for _, route := range protectedRoutes {
		for name, tok := range tokens {
			t.Run(route.method+" "+route.path+" "+name, func(t *testing.T) {
				status, body := f.do(t, route.method, route.path, registration("z@x.com", "password1"), tok)
				assert.Equal(t, http.StatusUnauthorized, status)
				assert.Equal(t, "authentication failed", decodeJSON[errorResponse](t, body).Message)
			})
		}
	}
}

type denyPolicy struct {
	seen []auth.Principal
}

func (p *denyPolicy) Allows(_ context.Context, principal auth.Principal, _ auth.Capability) bool {
	p.seen = append(p.seen, principal)
	return false
}

func TestProtectedRoutes_ForbiddenByPolicy(t *testing.T) {
	policy := &denyPolicy{}
	f := newFixture(t, mocks.NewMockUserRepository(t), policy)
	token := f.token(t)

	for _, route := range protectedRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			status, body := f.do(t, route.method, route.path, registration("z@x.com", "password1"), token)
			assert.Equal(t, http.StatusForbidden, status)
			assert.Equal(t, "operation not permitted", decodeJSON[errorResponse](t, body).Message)
		})
	}
	require.Len(t, policy.seen, len(protectedRoutes))
	assert.Equal(t, "admin@x.com", policy.seen[0].Email)
}

func TestRegister(t *testing.T) {
	f := newMemoryFixture(t)
	token := f.token(t)

	status, body := f.do(t, http.MethodPost, "/api/register-user", registration("a@x.com", "password1"), token)
	require.Equal(t, http.StatusCreated, status)
	res := decodeJSON[map[string]any](t, body)
	assert.Equal(t, registrationSucceeded, res["message"])
	result := res["result"].(map[string]any)
	assert.Equal(t, "a@x.com", result["email"])
	assert.Equal(t, "E-42", result["matricule"])
	assert.NotContains(t, string(body), "password")

	status, body = f.do(t, http.MethodPost, "/api/register-user", registration("A@x.com", "password2"), token)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", decodeJSON[errorResponse](t, body).Message)

	status, body = f.do(t, http.MethodGet, "/api/", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeJSON[[]userResponse](t, body), 1)

	status, body = f.do(t, http.MethodPost, "/api/register-user", map[string]any{"email": "bad", "password": "short"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	rej := decodeJSON[errorResponse](t, body)
	for _, field := range []string{"nom", "prenom", "email", "password"} {
		assert.Contains(t, rej.Errors, field)
	}
}

func TestReadAndProfile(t *testing.T) {
	f := newMemoryFixture(t)
	token := f.token(t)
	user := f.register(t, "a@x.com", "password1")

	status, body := f.do(t, http.MethodGet, "/api/read-user/"+user.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.ID, decodeJSON[userResponse](t, body).ID)

	status, body = f.do(t, http.MethodGet, "/api/user-profile/"+user.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.Email, decodeJSON[msgResponse](t, body).Msg.Email)

	for _, id := range []string{ulid.Make().String(), "64b7f1c2e4b0a1b2c3d4e5f6"} {
		status, body = f.do(t, http.MethodGet, "/api/read-user/"+id, nil, token)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user not found", decodeJSON[errorResponse](t, body).Message)
	}
}

func TestUpdate_IgnoresPassword(t *testing.T) {
	f := newMemoryFixture(t)
	token := f.token(t)
	user := f.register(t, "a@x.com", "password1")

	status, body := f.do(t, http.MethodPut, "/api/update-user/"+user.ID,
		map[string]any{"role": "auditor", "password": "hijacked1"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "auditor", decodeJSON[msgResponse](t, body).Msg.Role)

	status, _ = f.do(t, http.MethodPost, "/api/signin", map[string]string{"email": "a@x.com", "password": "password1"}, "")
	assert.Equal(t, http.StatusOK, status, "old password must still work")
	status, _ = f.do(t, http.MethodPost, "/api/signin", map[string]string{"email": "a@x.com", "password": "hijacked1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	other := f.register(t, "b@x.com", "password1")
	status, _ = f.do(t, http.MethodPut, "/api/update-user/"+other.ID, map[string]any{"email": "a@x.com"}, token)
	assert.Equal(t, http.StatusConflict, status)
}

func TestChangePassword(t *testing.T) {
	f := newMemoryFixture(t)
	token := f.token(t)
	user := f.register(t, "a@x.com", "password1")

	status, _ := f.do(t, http.MethodPut, "/api/update/"+user.ID, map[string]string{"password": "NewPass1"}, token)
	require.Equal(t, http.StatusOK, status)

	id, err := ulid.Parse(user.ID)
	require.NoError(t, err)
	stored, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify("NewPass1", stored.PasswordHash))
	assert.False(t, f.hasher.Verify("password1", stored.PasswordHash))

	status, _ = f.do(t, http.MethodPut, "/api/update/"+user.ID, map[string]string{"password": "short"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDelete(t *testing.T) {
	f := newMemoryFixture(t)
	token := f.token(t)
	user := f.register(t, "a@x.com", "password1")

	status, body := f.do(t, http.MethodDelete, "/api/delete-user/"+user.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a@x.com", decodeJSON[msgResponse](t, body).Msg.Email)

	status, _ = f.do(t, http.MethodGet, "/api/read-user/"+user.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodDelete, "/api/delete-user/"+user.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoreFailure_IsGeneric(t *testing.T) {
	repo := mocks.NewMockUserRepository(t)
	f := newFixture(t, repo, nil)
	repo.On("List", mock.Anything).Return(nil, errors.New("pq: relation \"users\" does not exist"))

	status, body := f.do(t, http.MethodGet, "/api/", nil, f.token(t))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, genericFailure, decodeJSON[errorResponse](t, body).Message)
	assert.NotContains(t, string(body), "relation")
}

func TestMalformedBody(t *testing.T) {
	f := newMemoryFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestObserveRequests(t *testing.T) {
	f := newMemoryFixture(t)
	user := f.register(t, "a@x.com", "password1")
	f.requests = nil

	f.do(t, http.MethodGet, "/api/read-user/"+user.ID, nil, f.token(t))
	f.do(t, http.MethodGet, "/api/read-user/"+user.ID, nil, "")

	require.Len(t, f.requests, 2)
	assert.Equal(t, observed{"GET /api/read-user/:id", http.StatusOK}, f.requests[0])
	assert.Equal(t, observed{"GET /api/read-user/:id", http.StatusUnauthorized}, f.requests[1])
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_ReadyFollowsServeAndShutdown(t *testing.T) {
	f := newMemoryFixture(t)
	assert.False(t, f.server.Ready())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ln) }()
	assert.Eventually(t, f.server.Ready, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusUnauthorized
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))
	assert.False(t, f.server.Ready())
	require.NoError(t, <-done)
}
