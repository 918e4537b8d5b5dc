package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/application/facade"
	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockUsers struct {
	registered map[string]*user.User
}

func newMockUsers() *mockUsers {
	return &mockUsers{registered: map[string]*user.User{
		"ivan@example.com": {ID: 1, Email: "ivan@example.com", HashedPassword: "pw"},
	}}
}

func (m *mockUsers) Register(_ context.Context, email, password string) (*user.User, error) {
	if _, ok := m.registered[email]; ok {
		return nil, user.ErrEmailTaken
	}
	u := &user.User{ID: int64(len(m.registered) + 1), Email: email, HashedPassword: password}
	m.registered[email] = u
	return u, nil
}

func (m *mockUsers) Get(_ context.Context, id int64) (*user.User, error) {
	for _, u := range m.registered {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUsers) Login(_ context.Context, email, password string) (string, error) {
	u, ok := m.registered[email]
	if !ok || u.HashedPassword != password {
		return "", user.ErrInvalidCredentials
	}
	return "token-for-" + email, nil
}

func (m *mockUsers) Authenticate(_ context.Context, token string) (*user.User, error) {
	email, ok := strings.CutPrefix(token, "token-for-")
	if !ok {
		return nil, errors.New("invalid token")
	}
	if u, ok := m.registered[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type mockPinger struct {
	err error
}

func (p mockPinger) PingContext(context.Context) error { return p.err }

func newRouter(t *testing.T, db Pinger) (*gin.Engine, *hub.Hub) {
	t.Helper()
	log := logger.NewNopLogger()

	hubInstance := hub.New(log)
	if err := hubInstance.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = hubInstance.Stop(context.Background()) })

	users := newMockUsers()
	requireUser := middleware.RequireUser(users)

	router := gin.New()
	v1 := router.Group("/api/v1")

	health := NewHealthHandler(db, log)
	v1.GET("/health/live", health.Live)
	v1.GET("/health/ready", health.Ready)

	userHandler := NewUserHandler(users, log)
	v1.POST("/users/", userHandler.Create)
	v1.GET("/users/me", requireUser, userHandler.Me)

	v1.POST("/auth/login", NewAuthHandler(users, log).Login)
	v1.POST("/predict/", NewPredictHandler(facade.NewPredictionApplicationService(), log).Predict)

	messages := NewMessageHandler(hubInstance, log)
	v1.POST("/stream/messages", requireUser, messages.PostMessage)
	v1.GET("/stream/stats", messages.Stats)

	return router, hubInstance
}

func doJSON(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	router, _ := newRouter(t, mockPinger{})
	if w := doJSON(router, http.MethodGet, "/api/v1/health/live", "", nil); w.Code != http.StatusOK {
		t.Errorf("live: expected 200, got %d", w.Code)
	}
	if w := doJSON(router, http.MethodGet, "/api/v1/health/ready", "", nil); w.Code != http.StatusOK {
		t.Errorf("ready: expected 200, got %d", w.Code)
	}

	down, _ := newRouter(t, mockPinger{err: errors.New("connection refused")})
	w := doJSON(down, http.MethodGet, "/api/v1/health/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", w.Code)
	}
	if decode(t, w)["detail"] != "database unavailable" {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestUsers(t *testing.T) {
	router, _ := newRouter(t, mockPinger{})

	w := doJSON(router, http.MethodPost, "/api/v1/users/", "", gin.H{"email": "judy@example.com", "password": "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["email"] != "judy@example.com" || body["password"] != nil {
		t.Errorf("Unexpected body: %v", body)
	}

	w = doJSON(router, http.MethodPost, "/api/v1/users/", "", gin.H{"email": "judy@example.com", "password": "pw"})
	if w.Code != http.StatusConflict || decode(t, w)["detail"] != "Email already registered" {
		t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/v1/users/", "", gin.H{"email": "not-an-email", "password": "pw"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/users/me", "token-for-judy@example.com", nil)
	if w.Code != http.StatusOK || decode(t, w)["email"] != "judy@example.com" {
		t.Errorf("Expected current user, got %d: %s", w.Code, w.Body.String())
	}

	if w := doJSON(router, http.MethodGet, "/api/v1/users/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	router, _ := newRouter(t, mockPinger{})

	login := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := login("ivan@example.com", "pw")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["access_token"] != "token-for-ivan@example.com" || body["token_type"] != "bearer" {
		t.Errorf("Unexpected token body: %v", body)
	}

	w = login("ivan@example.com", "wrong")
	if w.Code != http.StatusUnauthorized || decode(t, w)["detail"] != "Invalid credentials" {
		t.Errorf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}

	if w := login("", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for empty form, got %d", w.Code)
	}
}

func TestPredict(t *testing.T) {
	router, _ := newRouter(t, mockPinger{})

	w := doJSON(router, http.MethodPost, "/api/v1/predict/", "", gin.H{"features": []float64{1, 2, 3, 4}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["prediction"] != 2.5 {
		t.Errorf("Expected 2.5, got %s", w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/v1/predict/", "", gin.H{"features": []float64{1, 2, 3}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
}

func TestPostMessage(t *testing.T) {
	router, hubInstance := newRouter(t, mockPinger{})
	sub := hubInstance.RegisterSSE()

	w := doJSON(router, http.MethodPost, "/api/v1/stream/messages", "token-for-ivan@example.com", gin.H{"message": "hello"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["sse_connections"] != float64(1) || body["ws_connections"] != float64(0) {
		t.Errorf("Unexpected counts: %v", body)
	}

	select {
	case payload := <-sub.Events():
		var event map[string]any
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if event["type"] != "message" || event["message"] != "hello" || event["user_id"] != float64(1) {
			t.Errorf("Unexpected event: %v", event)
		}
		if _, err := time.Parse(time.RFC3339Nano, event["timestamp"].(string)); err != nil {
			t.Errorf("Timestamp should be RFC 3339: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber did not receive the message")
	}
}

func TestPostMessage_Validation(t *testing.T) {
	router, _ := newRouter(t, mockPinger{})
	token := "token-for-ivan@example.com"

	tests := []struct {
		name    string
		token   string
		message string
		status  int
	}{
		{"unauthenticated", "", "hi", http.StatusUnauthorized},
		{"empty", token, "", http.StatusUnprocessableEntity},
		{"too long", token, strings.Repeat("x", 1001), http.StatusUnprocessableEntity},
		{"max length", token, strings.Repeat("x", 1000), http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/stream/messages", tt.token, gin.H{"message": tt.message})
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestStats(t *testing.T) {
	router, hubInstance := newRouter(t, mockPinger{})
	hubInstance.RegisterSSE()

	w := doJSON(router, http.MethodGet, "/api/v1/stream/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["sse_connections"] != float64(1) || body["hub_running"] != true || body["backplane"] != "disabled" {
		t.Errorf("Unexpected stats: %v", body)
	}
}
