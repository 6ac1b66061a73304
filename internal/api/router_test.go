package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawhaus/boarding-api/internal/api/handler"
	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/service"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
	"github.com/pawhaus/boarding-api/internal/infrastructure/db/memory"
	"github.com/pawhaus/boarding-api/internal/infrastructure/realtime"
)

type testAPI struct {
	srv      *httptest.Server
	tokens   *service.TokenService
	registry *realtime.Registry
	pets     *memory.Store[domain.Pet, *domain.Pet]
	admin    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zerolog.Nop()

	pets := memory.NewStore[domain.Pet]()
	repos := service.Repositories{
		Users:          memory.NewUserStore(),
		Pets:           pets,
		Services:       memory.NewStore[domain.Service](),
		Reservations:   memory.NewStore[domain.Reservation](),
		Invoices:       memory.NewStore[domain.Invoice](),
		Payments:       memory.NewStore[domain.Payment](),
		MedicalHistory: memory.NewStore[domain.MedicalRecord](),
		Employees:      memory.NewStore[domain.Employee](),
		Assignments:    memory.NewStore[domain.Assignment](),
		ActivityLogs:   memory.NewStore[domain.ActivityLog](),
	}

	store, err := cache.NewMemoryStore(256)
	if err != nil {
		t.Fatalf("memory cache: %v", err)
	}
	cacheSvc := cache.NewService(store, cache.Options{}, log)
	registry := realtime.NewRegistry(log)
	// No dispatcher: deliveries finish before the write returns.
	notifier := realtime.NewNotifier(registry, nil, log)

	tokens, err := service.NewTokenService("e2e-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	ttl := service.CacheTTLs{List: time.Minute, Item: time.Minute}
	auth := service.NewAuthService(repos.Users, tokens, cacheSvc, notifier, log)
	auth.SetHashCost(bcrypt.MinCost)
	if err := auth.EnsureAdmin(context.Background(), "root@example.com", "rootpass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	e := NewRouter(Deps{
		Log:       log,
		Tokens:    tokens,
		Auth:      auth,
		Users:     service.NewUserService(repos.Users, cacheSvc, notifier, ttl),
		Resources: service.NewResources(repos, cacheSvc, notifier, ttl, log),
		Registry:  registry,
		Notifier:  notifier,
		WS:        handler.WSOptions{PingInterval: time.Minute, WriteTimeout: time.Second},
		Health:    []handler.Dependency{{Name: "cache", Pinger: cacheSvc, Optional: true}},
	})
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		registry.CloseAll("test done")
		srv.Close()
	})

	api := &testAPI{srv: srv, tokens: tokens, registry: registry, pets: pets}
	api.admin = api.login(t, "root@example.com", "rootpass")
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (a *testAPI) json(t *testing.T, method, path, token string, body any, want int) map[string]any {
	t.Helper()
	code, raw := a.do(t, method, path, token, body)
	if code != want {
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, want, code, raw)
	}
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: invalid json %q", method, path, raw)
		}
	}
	return out
}

func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	resp := a.json(t, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Test", "email": email, "password": "secret1",
	}, http.StatusCreated)
	return resp["access_token"].(string)
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := a.json(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": email, "password": password,
	}, http.StatusOK)
	return resp["access_token"].(string)
}

func (a *testAPI) createPet(t *testing.T, token, name string) int64 {
	t.Helper()
	resp := a.json(t, http.MethodPost, "/pets", token, map[string]any{
		"name": name, "species": "dog",
	}, http.StatusCreated)
	return int64(resp["id"].(float64))
}

func petIDs(t *testing.T, page map[string]any) []int64 {
	t.Helper()
	items, _ := page["items"].([]any)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, int64(it.(map[string]any)["id"].(float64)))
	}
	return ids
}

// ---- ownership ----

func TestE2E_UserSeesOnlyOwnPets(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	bob := a.register(t, "bob@example.com")

	alicePet := a.createPet(t, alice, "Rex")
	bobPet := a.createPet(t, bob, "Fido")

	own := petIDs(t, a.json(t, http.MethodGet, "/pets", alice, nil, http.StatusOK))
	if len(own) != 1 || own[0] != alicePet {
		t.Fatalf("alice should only see her pet, got %v", own)
	}

	code, _ := a.do(t, http.MethodGet, fmt.Sprintf("/pets/%d", bobPet), alice, nil)
	if code != http.StatusNotFound {
		t.Fatalf("foreign pet must be 404, got %d", code)
	}
	code, _ = a.do(t, http.MethodDelete, fmt.Sprintf("/pets/%d", bobPet), alice, nil)
	if code != http.StatusNotFound {
		t.Fatalf("foreign delete must be 404, got %d", code)
	}
	if a.pets.Len() != 2 {
		t.Fatalf("foreign delete must not touch storage")
	}
}

func TestE2E_AdminSeesEveryPet(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	bob := a.register(t, "bob@example.com")
	a.createPet(t, alice, "Rex")
	a.createPet(t, bob, "Fido")

	all := petIDs(t, a.json(t, http.MethodGet, "/pets", a.admin, nil, http.StatusOK))
	if len(all) != 2 {
		t.Fatalf("admin should see both pets, got %v", all)
	}
}

// ---- cache ----

func TestE2E_CreateInvalidatesCachedList(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	a.createPet(t, alice, "Rex")

	first := petIDs(t, a.json(t, http.MethodGet, "/pets", a.admin, nil, http.StatusOK))
	// Served from the cache.
	again := petIDs(t, a.json(t, http.MethodGet, "/pets", a.admin, nil, http.StatusOK))
	if len(first) != 1 || len(again) != 1 {
		t.Fatalf("unexpected lists %v %v", first, again)
	}

	newPet := a.createPet(t, alice, "Max")
	after := petIDs(t, a.json(t, http.MethodGet, "/pets", a.admin, nil, http.StatusOK))
	if len(after) != 2 || after[1] != newPet {
		t.Fatalf("list after create must include the new pet, got %v", after)
	}
}

// ---- realtime ----

func dial(t *testing.T, a *testAPI, path string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + path
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_PetsChannelReceivesOneCreatedUpdate(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")

	conn := dial(t, a, "/ws/pets?token="+a.admin)
	waitFor(t, func() bool { return a.registry.Count(domain.ChannelPets) == 1 })

	petID := a.createPet(t, alice, "Rex")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type       string         `json:"type"`
		EntityType string         `json:"entity_type"`
		Action     string         `json:"action"`
		Payload    map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid envelope %s", raw)
	}
	if msg.Type != domain.EnvelopeRealtimeUpdate || msg.EntityType != "pets" || msg.Action != "created" {
		t.Fatalf("unexpected envelope %s", raw)
	}
	if int64(msg.Payload["id"].(float64)) != petID {
		t.Fatalf("payload id mismatch: %s", raw)
	}

	quiet, cancelQuiet := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelQuiet()
	if _, extra, err := conn.Read(quiet); err == nil {
		t.Fatalf("expected exactly one message, got another: %s", extra)
	}
}

func TestE2E_OwnerReceivesPersonalNotification(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	me := a.json(t, http.MethodGet, "/auth/me", alice, nil, http.StatusOK)
	aliceID := int64(me["identity_id"].(float64))

	conn := dial(t, a, fmt.Sprintf("/ws/user/%d?token=%s", aliceID, alice))
	waitFor(t, func() bool { return a.registry.IdentityCount(aliceID) == 1 })

	a.createPet(t, alice, "Rex")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg domain.Notification
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid envelope %s", raw)
	}
	if msg.Type != domain.EnvelopeNotification || msg.NotificationType != "pet_created" || msg.IdentityID != aliceID {
		t.Fatalf("unexpected notification %s", raw)
	}
}

func TestE2E_WebsocketRejections(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")

	cases := []struct {
		path string
		want int
	}{
		{"/ws/pets", http.StatusUnauthorized},
		{"/ws/pets?token=garbage", http.StatusUnauthorized},
		{"/ws/employees?token=" + alice, http.StatusForbidden},
		{"/ws/pets?token=" + alice, http.StatusForbidden},
		{"/ws/medical-history?token=" + alice, http.StatusForbidden},
		{"/ws/nope?token=" + alice, http.StatusNotFound},
		{"/ws/users?token=" + alice, http.StatusNotFound},
		{"/ws/user/9999?token=" + alice, http.StatusForbidden},
	}
	for _, tc := range cases {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + tc.path
		conn, resp, err := websocket.Dial(ctx, url, nil)
		cancel()
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
			t.Fatalf("%s: expected rejection", tc.path)
		}
		if resp == nil || resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %+v", tc.path, tc.want, resp)
		}
	}
}

func TestE2E_PersonalSocketNeverCarriesOtherAccounts(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	aliceID := int64(a.json(t, http.MethodGet, "/auth/me", alice, nil, http.StatusOK)["identity_id"].(float64))
	adminID := int64(a.json(t, http.MethodGet, "/auth/me", a.admin, nil, http.StatusOK)["identity_id"].(float64))

	aliceConn := dial(t, a, fmt.Sprintf("/ws/user/%d?token=%s", aliceID, alice))
	adminConn := dial(t, a, fmt.Sprintf("/ws/user/%d?token=%s", adminID, a.admin))
	waitFor(t, func() bool { return a.registry.Count(domain.ChannelUsers) == 2 })

	a.json(t, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Bob", "email": "bob@example.com", "password": "secret1",
		"phone_number": "555-0100", "address": "1 Private Lane",
	}, http.StatusCreated)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := adminConn.Read(ctx)
	if err != nil {
		t.Fatalf("staff should see the new account: %v", err)
	}
	if !strings.Contains(string(raw), "bob@example.com") {
		t.Fatalf("unexpected staff envelope %s", raw)
	}

	quiet, cancelQuiet := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelQuiet()
	if _, leaked, err := aliceConn.Read(quiet); err == nil {
		t.Fatalf("plain user received another account: %s", leaked)
	}
}

func TestE2E_OwnedChannelsAreStaffOnly(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	bob := a.register(t, "bob@example.com")
	bobID := int64(a.json(t, http.MethodGet, "/auth/me", bob, nil, http.StatusOK)["identity_id"].(float64))
	a.json(t, http.MethodPut, fmt.Sprintf("/auth/users/%d/role", bobID), a.admin, map[string]any{"role": "employee"}, http.StatusOK)
	employee := a.login(t, "bob@example.com", "secret1")

	conn := dial(t, a, "/ws/pets?token="+employee)
	waitFor(t, func() bool { return a.registry.Count(domain.ChannelPets) == 1 })

	petID := a.createPet(t, alice, "Rex")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("employee should follow every pet: %v", err)
	}
	if !strings.Contains(string(raw), fmt.Sprintf(`"id":%d`, petID)) {
		t.Fatalf("unexpected envelope %s", raw)
	}
}

// ---- gate ----

func TestE2E_ExpiredTokenCannotWrite(t *testing.T) {
	a := newTestAPI(t)
	a.register(t, "alice@example.com")
	me := a.json(t, http.MethodGet, "/auth/me", a.login(t, "alice@example.com", "secret1"), nil, http.StatusOK)

	expired, _, err := a.tokens.Issue(domain.Identity{
		ID:    int64(me["identity_id"].(float64)),
		Email: "alice@example.com",
		Role:  domain.RoleUser,
	}, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	code, body := a.do(t, http.MethodPost, "/pets", expired, map[string]any{"name": "Rex", "species": "dog"})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", code, body)
	}
	if a.pets.Len() != 0 {
		t.Fatalf("rejected request must not reach storage")
	}
}

func TestE2E_PermissionAndRoleErrors(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")

	cases := []struct {
		method, path string
		token        string
		body         any
		want         int
	}{
		{http.MethodGet, "/pets", "", nil, http.StatusUnauthorized},
		{http.MethodPost, "/employees", alice, map[string]any{"first_name": "Eve", "last_name": "E", "email": "eve@example.com"}, http.StatusForbidden},
		{http.MethodGet, "/users", alice, nil, http.StatusForbidden},
		{http.MethodPut, "/auth/users/1/role", alice, map[string]any{"role": "admin"}, http.StatusForbidden},
		{http.MethodGet, "/activity_logs", alice, nil, http.StatusForbidden},
		{http.MethodPost, "/pets", alice, map[string]any{"species": "dog"}, http.StatusUnprocessableEntity},
		{http.MethodGet, "/pets/abc", alice, nil, http.StatusUnprocessableEntity},
		{http.MethodPost, "/auth/login", "", map[string]any{"email": "alice@example.com", "password": "wrong"}, http.StatusUnauthorized},
		{http.MethodPost, "/auth/register", "", map[string]any{"first_name": "A", "email": "alice@example.com", "password": "secret1"}, http.StatusConflict},
	}
	for _, tc := range cases {
		code, body := a.do(t, tc.method, tc.path, tc.token, tc.body)
		if code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, code, body)
		}
	}
}

func TestE2E_UnauthorizedSetsChallengeHeader(t *testing.T) {
	a := newTestAPI(t)
	resp, err := a.srv.Client().Get(a.srv.URL + "/auth/me")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, resp.Header.Get("WWW-Authenticate"))
	}
}

func TestE2E_RoleChangeAppliesToNextToken(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	me := a.json(t, http.MethodGet, "/auth/me", alice, nil, http.StatusOK)
	id := int64(me["identity_id"].(float64))

	a.json(t, http.MethodPut, fmt.Sprintf("/auth/users/%d/role", id), a.admin, map[string]any{"role": "employee"}, http.StatusOK)

	// The old token keeps its role until it expires.
	if code, _ := a.do(t, http.MethodGet, "/users", alice, nil); code != http.StatusForbidden {
		t.Fatalf("old token must keep the user role, got %d", code)
	}
	fresh := a.login(t, "alice@example.com", "secret1")
	if code, _ := a.do(t, http.MethodGet, "/users", fresh, nil); code != http.StatusOK {
		t.Fatalf("new token must carry the employee role, got %d", code)
	}
}

func TestE2E_Health(t *testing.T) {
	a := newTestAPI(t)
	a.json(t, http.MethodGet, "/health", "", nil, http.StatusOK)
	ready := a.json(t, http.MethodGet, "/health/ready", "", nil, http.StatusOK)
	if ready["status"] != "ok" {
		t.Fatalf("unexpected readiness %+v", ready)
	}
}

func TestE2E_SystemNotificationReachesUsersChannel(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice@example.com")
	me := a.json(t, http.MethodGet, "/auth/me", alice, nil, http.StatusOK)
	aliceID := int64(me["identity_id"].(float64))

	conn := dial(t, a, fmt.Sprintf("/ws/user/%d?token=%s", aliceID, alice))
	waitFor(t, func() bool { return a.registry.Count(domain.ChannelUsers) == 1 })

	if code, _ := a.do(t, http.MethodPost, "/system/notifications", alice, map[string]any{"message": "hi"}); code != http.StatusForbidden {
		t.Fatalf("users must not broadcast, got %d", code)
	}
	a.json(t, http.MethodPost, "/system/notifications", a.admin, map[string]any{
		"message": "maintenance at 22:00", "level": "warning",
	}, http.StatusAccepted)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg domain.SystemNotification
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid envelope %s", raw)
	}
	if msg.Type != domain.EnvelopeSystem || msg.Level != "warning" || msg.Message != "maintenance at 22:00" {
		t.Fatalf("unexpected system notification %s", raw)
	}
}
