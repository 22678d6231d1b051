package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap/zaptest"

	"duemate/internal/domain"
	"duemate/internal/notify"
	"duemate/internal/service"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != "" && u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByPhone(_ context.Context, phone string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber != "" && u.PhoneNumber == phone {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

type mockPaymentRepo struct {
	mu    sync.Mutex
	items map[string]domain.Payment
	order []string
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{items: make(map[string]domain.Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, userID, id string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPaymentRepo) List(_ context.Context, f domain.PaymentFilter) (domain.PaymentPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []domain.Payment
	for _, id := range m.order {
		if p, ok := m.items[id]; ok && p.UserID == f.UserID {
			owned = append(owned, p)
		}
	}
	start := (f.Page - 1) * f.PerPage
	end := start + f.PerPage
	if start > len(owned) {
		start = len(owned)
	}
	if end > len(owned) {
		end = len(owned)
	}
	return domain.PaymentPage{Items: owned[start:end], TotalCount: len(owned), Page: f.Page, PerPage: f.PerPage}, nil
}

func (m *mockPaymentRepo) UpdateStatus(_ context.Context, userID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return pgx.ErrNoRows
	}
	p.Status = status
	m.items[id] = p
	return nil
}

func (m *mockPaymentRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockPaymentRepo) ListDue(context.Context, time.Time) ([]domain.DuePayment, error) {
	return nil, nil
}

type failingGateway struct{}

func (failingGateway) Send(context.Context, notify.Message) error {
	return context.DeadlineExceeded
}

// authFixture arma el flujo de acceso completo con dependencias en memoria.
type authFixture struct {
	router  *gin.Engine
	users   *mockUserRepo
	store   *service.MemoryChallengeStore
	gateway *notify.RecordingGateway
	jwt     *service.JWTService
	clock   *fakeClock
}

func newAuthFixture(t *testing.T, gw notify.Gateway) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	clk := newFakeClock()
	users := newMockUserRepo()
	store := service.NewMemoryChallengeStore()
	recorder := notify.NewRecordingGateway(log)
	if gw == nil {
		gw = recorder
	}
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, time.Hour, nil).WithClock(clk)
	otpSvc := service.NewOTPService(log, users, store, gw, service.NewAttemptLimiter(time.Minute, 3, clk), jwtSvc,
		service.OTPServiceConfig{TTL: 5 * time.Minute}).WithClock(clk)

	h := NewAuthHandler(log, otpSvc, jwtSvc)
	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/login/email", h.LoginEmail)
	r.POST("/api/auth/login/phone", h.LoginPhone)
	r.POST("/api/auth/verify_otp", h.VerifyOTP)
	r.POST("/api/auth/refresh", h.RefreshToken)
	r.POST("/api/auth/logout", h.Logout)

	return &authFixture{router: r, users: users, store: store, gateway: recorder, jwt: jwtSvc, clock: clk}
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func (f *authFixture) deliveredCode(t *testing.T, to string) string {
	t.Helper()
	msg, ok := f.gateway.Last(to)
	if !ok {
		t.Fatalf("expected message to %s", to)
	}
	m := codePattern.FindStringSubmatch(msg.Text)
	if len(m) != 2 {
		t.Fatalf("expected code in %q", msg.Text)
	}
	return m[1]
}

func performRequest(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}
