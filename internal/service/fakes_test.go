package service

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"duemate/internal/domain"
	"duemate/internal/notify"
	"duemate/internal/repository"
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

type memUserRepo struct {
	mu        sync.Mutex
	users     map[string]domain.User
	creates   int
	createErr error
	lookupErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if (u.Email != "" && existing.Email == u.Email) || (u.PhoneNumber != "" && existing.PhoneNumber == u.PhoneNumber) {
			return repository.ErrDuplicate
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.PhoneNumber == phone })
}

func (r *memUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return domain.User{}, r.lookupErr
	}
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// countingChallengeStore cuenta los accesos al store envuelto.
type countingChallengeStore struct {
	*MemoryChallengeStore
	mu   sync.Mutex
	puts int
	gets int
}

func newCountingChallengeStore() *countingChallengeStore {
	return &countingChallengeStore{MemoryChallengeStore: NewMemoryChallengeStore()}
}

func (s *countingChallengeStore) Put(ctx context.Context, id string, ch domain.Challenge) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.MemoryChallengeStore.Put(ctx, id, ch)
}

func (s *countingChallengeStore) Get(ctx context.Context, id string) (domain.Challenge, bool, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.MemoryChallengeStore.Get(ctx, id)
}

type memPaymentRepo struct {
	mu       sync.Mutex
	items    map[string]domain.Payment
	due      []domain.DuePayment
	lastList domain.PaymentFilter
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: make(map[string]domain.Payment)}
}

func (r *memPaymentRepo) Create(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, userID, id string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.UserID != userID {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (r *memPaymentRepo) List(_ context.Context, f domain.PaymentFilter) (domain.PaymentPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = f
	var items []domain.Payment
	for _, p := range r.items {
		if p.UserID == f.UserID {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Deadline.Before(items[j].Deadline) })
	return domain.PaymentPage{Items: items, TotalCount: len(items), Page: f.Page, PerPage: f.PerPage}, nil
}

func (r *memPaymentRepo) UpdateStatus(_ context.Context, userID, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.UserID != userID {
		return pgx.ErrNoRows
	}
	p.Status = status
	r.items[id] = p
	return nil
}

func (r *memPaymentRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *memPaymentRepo) ListDue(_ context.Context, before time.Time) ([]domain.DuePayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DuePayment
	for _, d := range r.due {
		if !d.Deadline.After(before) {
			out = append(out, d)
		}
	}
	return out, nil
}

type failingGateway struct {
	err error
}

func (g failingGateway) Send(context.Context, notify.Message) error {
	return g.err
}

var otpInText = regexp.MustCompile(`\b(\d{6})\b`)

func deliveredCode(t *testing.T, gw *notify.RecordingGateway, to string) string {
	t.Helper()
	msg, ok := gw.Last(to)
	if !ok {
		t.Fatalf("expected a message delivered to %s", to)
	}
	m := otpInText.FindStringSubmatch(msg.Text)
	if len(m) != 2 {
		t.Fatalf("expected otp code in message, got %q", msg.Text)
	}
	return m[1]
}
