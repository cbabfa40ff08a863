package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/api/handler"
	"github.com/apistarter/auth-api/internal/api/middleware"
	"github.com/apistarter/auth-api/internal/core/ports"
	"github.com/apistarter/auth-api/internal/core/service"
	"github.com/apistarter/auth-api/internal/infrastructure/db/memory"
	redisdb "github.com/apistarter/auth-api/internal/infrastructure/db/redis"
	"github.com/apistarter/auth-api/internal/infrastructure/mail"
	"github.com/apistarter/auth-api/internal/infrastructure/oauth"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "AdminPass123!"
)

type outbox struct {
	mu   sync.Mutex
	sent []ports.MailMessage
}

func (o *outbox) Enqueue(_ context.Context, msg ports.MailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type memoryFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryFiles) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryFiles) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryFiles) URL(key string) string { return "https://cdn.test/" + key }

type testEnv struct {
	t    *testing.T
	e    *echo.Echo
	mail *outbox
}

type envOptions struct {
	tokenTTL time.Duration
	limits   middleware.RateLimitTiers
	metrics  prometheus.Registerer
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	if opts.tokenTTL == 0 {
		opts.tokenTTL = time.Hour
	}
	if opts.limits.Window == 0 {
		opts.limits = middleware.RateLimitTiers{Default: 1000, Authenticated: 1000, Admin: 1000, Window: time.Minute}
	}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := redisdb.NewRateLimiter(rdb)

	store := memory.NewStore()
	users, roles, perms := store.Users(), store.Roles(), store.Permissions()

	err := service.NewSeeder(roles, perms, users, log).Run(ctx, service.SeedConfig{
		Permissions:   []string{"manage-users", "manage-roles", "edit-posts"},
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	box := &outbox{}
	files := &memoryFiles{objects: make(map[string][]byte)}

	tokens := service.NewTokenService(store.Tokens(), users, opts.tokenTTL, log)
	access := service.NewAccessResolver(roles, perms)

	e := NewRouter(Options{
		Version:    "v1",
		RateLimits: opts.limits,
		Metrics:    opts.metrics,
	}, Services{
		Tokens: tokens,
		Access: access,
		Auth: service.NewAuthService(users, roles, tokens, access, log).
			WithLoginThrottle(limiter, 5, time.Minute),
		Passwords: service.NewPasswordService(users, redisdb.NewPasswordResetStore(rdb), tokens,
			mail.NewNotifier(box, "Auth API"), "http://frontend.test/reset-password", time.Hour, 0, log),
		Social:     service.NewSocialAuthService(oauth.NewRegistry(nil), oauth.NewStateSigner("test-secret", 0), users, roles, tokens, access, log),
		Profile:    service.NewProfileService(users, access, files, log),
		AdminUsers: service.NewAdminUserService(users, roles, tokens, access, store, log),
		AdminRoles: service.NewAdminRoleService(roles, perms, users, store, log),
		Limiter:    limiter,
		URLs:       files,
		Health:     map[string]handler.Pinger{"memory": store, "redis": redisdb.NewPinger(rdb)},
	}, log)

	return &testEnv{t: t, e: e, mail: box}
}

type apiResponse struct {
	Code    int
	Header  http.Header
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (env *testEnv) do(method, path, token string, body any) apiResponse {
	env.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			env.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "router-test")
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	res := apiResponse{Code: rec.Code, Header: rec.Header()}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		env.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return res
}

func (env *testEnv) expect(res apiResponse, code int) apiResponse {
	env.t.Helper()
	if res.Code != code {
		env.t.Fatalf("expected %d, got %d: %s (%s)", code, res.Code, res.Message, res.Data)
	}
	return res
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func (env *testEnv) login(email, password string) string {
	env.t.Helper()
	res := env.expect(env.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	}), http.StatusOK)
	return decode[handler.AuthDTO](env.t, res.Data).AccessToken
}

func (env *testEnv) register(name, email, password string) handler.AuthDTO {
	env.t.Helper()
	res := env.expect(env.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password, "password_confirmation": password,
	}), http.StatusOK)
	return decode[handler.AuthDTO](env.t, res.Data)
}

func TestRouter_Root(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body["status"] != "success" || body["message"] != "API is working" {
		t.Fatalf("unexpected root response %d %v", rec.Code, body)
	}
}

func TestRouter_RegisterThenProfile(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	auth := env.register("Ann", "Ann@Example.com", "Secret123!")
	if auth.TokenType != "Bearer" || auth.AccessToken == "" {
		t.Fatalf("unexpected auth payload %+v", auth)
	}
	if len(auth.User.Roles) != 1 || auth.User.Roles[0] != "user" {
		t.Fatalf("expected default user role, got %v", auth.User.Roles)
	}

	res := env.expect(env.do(http.MethodGet, "/v1/user", auth.AccessToken, nil), http.StatusOK)
	if res.Header.Get("API-Version") != "v1" {
		t.Fatalf("expected API-Version header")
	}
	profile := decode[handler.UserProfileDTO](t, res.Data)
	if profile.Email != "ann@example.com" || profile.Name != "Ann" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	dup := env.expect(env.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "Secret123!", "password_confirmation": "Secret123!",
	}), http.StatusUnprocessableEntity)
	if dup.Message != "Validation Error." {
		t.Fatalf("unexpected message %q", dup.Message)
	}
}

func TestRouter_LoginWrongPasswordIssuesNoToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	auth := env.register("Bob", "bob@example.com", "Secret123!")

	res := env.expect(env.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "bob@example.com", "password": "wrong-password",
	}), http.StatusUnauthorized)
	if res.Success {
		t.Fatalf("expected failure envelope")
	}

	list := env.expect(env.do(http.MethodGet, "/v1/user/tokens", auth.AccessToken, nil), http.StatusOK)
	tokens := decode[[]handler.TokenDTO](t, list.Data)
	if len(tokens) != 1 {
		t.Fatalf("expected only the registration token, got %d", len(tokens))
	}
}

func TestRouter_RefreshAndLogout(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	old := env.register("Cy", "cy@example.com", "Secret123!").AccessToken

	res := env.expect(env.do(http.MethodPost, "/v1/auth/refresh", old, nil), http.StatusOK)
	fresh := decode[handler.AuthDTO](t, res.Data).AccessToken
	if fresh == "" || fresh == old {
		t.Fatalf("expected a new token")
	}

	env.expect(env.do(http.MethodGet, "/v1/user", old, nil), http.StatusUnauthorized)
	env.expect(env.do(http.MethodGet, "/v1/user", fresh, nil), http.StatusOK)

	env.expect(env.do(http.MethodPost, "/v1/auth/logout", fresh, nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, "/v1/user", fresh, nil), http.StatusUnauthorized)
}

func TestRouter_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, envOptions{tokenTTL: time.Nanosecond})
	token := env.register("Dee", "dee@example.com", "Secret123!").AccessToken

	time.Sleep(time.Millisecond)
	res := env.expect(env.do(http.MethodGet, "/v1/user", token, nil), http.StatusUnauthorized)
	if res.Message != "Unauthenticated." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestRouter_AdminOnly(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.register("Eve", "eve@example.com", "Secret123!").AccessToken

	env.expect(env.do(http.MethodGet, "/v1/admin/users", "", nil), http.StatusUnauthorized)
	res := env.expect(env.do(http.MethodGet, "/v1/admin/users", token, nil), http.StatusForbidden)
	if res.Message != "User does not have the right roles." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestRouter_AdminCreatesRole(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.login(adminEmail, adminPassword)

	res := env.expect(env.do(http.MethodPost, "/v1/admin/roles", admin, map[string]any{
		"name": "editor", "permissions": []string{"edit-posts"},
	}), http.StatusCreated)
	role := decode[handler.RoleDTO](t, res.Data)
	if role.Name != "editor" || len(role.Permissions) != 1 || role.Permissions[0] != "edit-posts" {
		t.Fatalf("unexpected role %+v", role)
	}

	res = env.expect(env.do(http.MethodGet, "/v1/admin/roles/"+strconv.FormatInt(role.ID, 10), admin, nil), http.StatusOK)
	if got := decode[handler.RoleDTO](t, res.Data); got.Name != "editor" || len(got.Permissions) != 1 {
		t.Fatalf("unexpected role %+v", got)
	}

	res = env.expect(env.do(http.MethodGet, "/v1/admin/roles", admin, nil), http.StatusOK)
	list := decode[struct {
		Data []handler.RoleDTO `json:"data"`
	}](t, res.Data)
	if len(list.Data) != 3 {
		t.Fatalf("expected admin, user and editor, got %d roles", len(list.Data))
	}

	env.expect(env.do(http.MethodPost, "/v1/admin/roles", admin, map[string]any{
		"name": "ghost", "permissions": []string{"does-not-exist"},
	}), http.StatusUnprocessableEntity)
}

func TestRouter_ProtectedRoles(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.login(adminEmail, adminPassword)

	res := env.expect(env.do(http.MethodGet, "/v1/admin/roles", admin, nil), http.StatusOK)
	list := decode[struct {
		Data []handler.RoleDTO `json:"data"`
	}](t, res.Data)
	ids := make(map[string]int64)
	for _, r := range list.Data {
		ids[r.Name] = r.ID
	}

	res = env.expect(env.do(http.MethodDelete, "/v1/admin/roles/"+strconv.FormatInt(ids["user"], 10), admin, nil), http.StatusForbidden)
	if res.Message != "Cannot delete the user role." {
		t.Fatalf("unexpected message %q", res.Message)
	}

	for _, name := range []string{"superuser", "user"} {
		res = env.expect(env.do(http.MethodPut, "/v1/admin/roles/"+strconv.FormatInt(ids["admin"], 10), admin, map[string]any{
			"name": name,
		}), http.StatusForbidden)
		if res.Message != "Cannot rename the admin role." {
			t.Fatalf("rename to %s: unexpected message %q", name, res.Message)
		}
	}

	env.expect(env.do(http.MethodDelete, "/v1/admin/roles/999", admin, nil), http.StatusNotFound)
}

func TestRouter_AdminUserGuards(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.login(adminEmail, adminPassword)

	me := decode[handler.UserProfileDTO](t, env.expect(env.do(http.MethodGet, "/v1/user", admin, nil), http.StatusOK).Data)
	path := "/v1/admin/users/" + strconv.FormatInt(me.ID, 10)

	res := env.expect(env.do(http.MethodPatch, path, admin, map[string]any{"roles": []string{"user"}}), http.StatusForbidden)
	if res.Message != "Cannot remove admin role from the last admin user." {
		t.Fatalf("unexpected message %q", res.Message)
	}

	res = env.expect(env.do(http.MethodDelete, path, admin, nil), http.StatusForbidden)
	if res.Message != "You cannot delete your own account." {
		t.Fatalf("unexpected message %q", res.Message)
	}

	res = env.expect(env.do(http.MethodPost, "/v1/admin/users", admin, map[string]any{
		"name": "Fay", "email": "fay@example.com", "password": "Secret123!", "password_confirmation": "Secret123!",
	}), http.StatusCreated)
	fay := decode[handler.UserProfileDTO](t, res.Data)

	env.expect(env.do(http.MethodDelete, "/v1/admin/users/"+strconv.FormatInt(fay.ID, 10), admin, nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, "/v1/admin/users/"+strconv.FormatInt(fay.ID, 10), admin, nil), http.StatusNotFound)
	env.expect(env.do(http.MethodGet, "/v1/admin/users/abc", admin, nil), http.StatusNotFound)
}

var resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9]+)`)

func TestRouter_PasswordReset(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	old := env.register("Gus", "gus@example.com", "Secret123!").AccessToken

	env.expect(env.do(http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": "gus@example.com"}), http.StatusOK)
	env.expect(env.do(http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"}), http.StatusBadRequest)

	if len(env.mail.sent) != 1 {
		t.Fatalf("expected one reset mail, got %d", len(env.mail.sent))
	}
	m := resetTokenPattern.FindStringSubmatch(env.mail.sent[0].TextBody)
	if m == nil {
		t.Fatalf("no reset token in mail body %q", env.mail.sent[0].TextBody)
	}

	env.expect(env.do(http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"email": "gus@example.com", "token": "wrong", "password": "NewSecret123!", "password_confirmation": "NewSecret123!",
	}), http.StatusBadRequest)

	env.expect(env.do(http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"email": "gus@example.com", "token": m[1], "password": "NewSecret123!", "password_confirmation": "NewSecret123!",
	}), http.StatusOK)

	env.expect(env.do(http.MethodGet, "/v1/user", old, nil), http.StatusUnauthorized)
	env.login("gus@example.com", "NewSecret123!")
}

func TestRouter_RateLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{limits: middleware.RateLimitTiers{Default: 2, Authenticated: 2, Admin: 2, Window: time.Minute}})

	body := map[string]string{"email": "x@example.com"}
	for i := 0; i < 2; i++ {
		res := env.do(http.MethodPost, "/v1/auth/forgot-password", "", body)
		if res.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i)
		}
	}

	res := env.expect(env.do(http.MethodPost, "/v1/auth/forgot-password", "", body), http.StatusTooManyRequests)
	if res.Header.Get("Retry-After") == "" || res.Header.Get("X-RateLimit-Limit") != "2" {
		t.Fatalf("missing rate limit headers: %v", res.Header)
	}
}

func TestRouter_UnknownProvider(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	res := env.expect(env.do(http.MethodGet, "/v1/auth/myspace/redirect", "", nil), http.StatusBadRequest)
	if res.Message != "Invalid provider." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t, envOptions{metrics: prometheus.NewRegistry()})
	env.expect(env.do(http.MethodGet, "/v1/user", "", nil), http.StatusUnauthorized)

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rec.Code)
	}
}

func TestRouter_UpdateProfile(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.register("Hal", "hal@example.com", "Secret123!").AccessToken

	res := env.expect(env.do(http.MethodPut, "/v1/user", token, map[string]string{"name": "Hal Jordan"}), http.StatusOK)
	if got := decode[handler.UserProfileDTO](t, res.Data); got.Name != "Hal Jordan" || got.Email != "hal@example.com" {
		t.Fatalf("unexpected profile %+v", got)
	}

	res = env.expect(env.do(http.MethodPut, "/v1/user", token, map[string]string{"name": " "}), http.StatusUnprocessableEntity)
	fields := decode[map[string][]string](t, res.Data)
	if len(fields["name"]) == 0 {
		t.Fatalf("expected name error, got %v", fields)
	}
}

func TestRouter_ThrottlesFailedBearerAttempts(t *testing.T) {
	env := newTestEnv(t, envOptions{limits: middleware.RateLimitTiers{Default: 3, Authenticated: 100, Admin: 100, Window: time.Minute}})

	for i := 0; i < 3; i++ {
		env.expect(env.do(http.MethodGet, "/v1/user", "1|guess", nil), http.StatusUnauthorized)
	}
	res := env.expect(env.do(http.MethodGet, "/v1/admin/users", "2|guess", nil), http.StatusTooManyRequests)
	if res.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}
