package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"duemate/internal/domain"
)

type captureGateway struct {
	last Message
	err  error
}

func (c *captureGateway) Send(_ context.Context, msg Message) error {
	c.last = msg
	return c.err
}

func TestRouterDispatchesByChannel(t *testing.T) {
	email := &captureGateway{}
	sms := &captureGateway{}
	r := NewRouter(email, sms)

	if err := r.Send(context.Background(), Message{Channel: domain.ChannelEmail, To: "user@example.com"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if email.last.To != "user@example.com" || sms.last.To != "" {
		t.Fatalf("expected email gateway to receive the message")
	}

	if err := r.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sms.last.To != "+911234567890" {
		t.Fatalf("expected sms gateway to receive the message")
	}
}

func TestRouterRejectsUnknownChannel(t *testing.T) {
	r := NewRouter(&captureGateway{}, nil)
	err := r.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890"})
	if !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected ErrUnsupportedChannel, got %v", err)
	}
	if err := r.Send(context.Background(), Message{Channel: domain.ChannelEmail}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestRecordingGatewayRecords(t *testing.T) {
	g := NewRecordingGateway(zaptest.NewLogger(t))
	msg := Message{Channel: domain.ChannelEmail, To: "user@example.com", Subject: "hi", Text: "body"}
	if err := g.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	last, ok := g.Last("user@example.com")
	if !ok || last.Text != "body" {
		t.Fatalf("expected recorded message, got %+v", last)
	}
	if len(g.Sent()) != 1 {
		t.Fatalf("expected one message, got %d", len(g.Sent()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Send(ctx, msg); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestDisabledGatewayFails(t *testing.T) {
	if err := NewDisabledGateway("sms not configured").Send(context.Background(), Message{}); err == nil || err.Error() != "sms not configured" {
		t.Fatalf("expected configured reason, got %v", err)
	}
	if err := NewDisabledGateway("").Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected default error")
	}
}

func TestSMSGatewaySendsPayload(t *testing.T) {
	var got smsPayload
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	g, err := NewSMSGateway(srv.URL, "gw-user", "gw-pass")
	if err != nil {
		t.Fatalf("new sms gateway: %v", err)
	}
	err = g.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890", Text: "code 123456"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != "gw-user" || pass != "gw-pass" {
		t.Fatalf("expected basic auth credentials, got %q/%q", user, pass)
	}
	if got.TextMessage.Text != "code 123456" || len(got.PhoneNumbers) != 1 || got.PhoneNumbers[0] != "+911234567890" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSMSGatewayRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, _ := NewSMSGateway(srv.URL, "", "")
	g.backoff = time.Millisecond
	if err := g.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890"}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestSMSGatewayDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g, _ := NewSMSGateway(srv.URL, "", "")
	g.backoff = time.Millisecond
	if err := g.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890"}); err == nil {
		t.Fatalf("expected error on 401")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestSMSGatewayRequiresCountryCode(t *testing.T) {
	g, _ := NewSMSGateway("http://127.0.0.1:1", "", "")
	err := g.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "1234567890"})
	if !errors.Is(err, ErrMissingCountryCode) {
		t.Fatalf("expected ErrMissingCountryCode, got %v", err)
	}
}

func TestOTPMessage(t *testing.T) {
	msg := OTPMessage(domain.EmailContact("user@example.com"), "042317", 5*time.Minute)
	if msg.Channel != domain.ChannelEmail || msg.To != "user@example.com" || msg.Subject != "Duemate Sign In" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Text, "042317") || !strings.Contains(msg.Text, "5 minutes") {
		t.Fatalf("expected code and ttl in body, got %q", msg.Text)
	}
}

func TestReminderMessageOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	p := domain.Payment{Name: "Rent", Amount: 1200, Deadline: now.Add(-48 * time.Hour)}
	msg := ReminderMessage(domain.ChannelEmail, "user@example.com", p, now)
	if !strings.Contains(msg.Text, "overdue") {
		t.Fatalf("expected overdue wording, got %q", msg.Text)
	}
	p.Deadline = now.Add(24 * time.Hour)
	msg = ReminderMessage(domain.ChannelPhone, "+911234567890", p, now)
	if strings.Contains(msg.Text, "overdue") || !strings.Contains(msg.Text, "March 11, 2025") {
		t.Fatalf("unexpected upcoming reminder %q", msg.Text)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	from := mail.Address{Name: "Duemate", Address: "no-reply@duemate.app"}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	raw := string(buildMessage(from, Message{
		Channel: domain.ChannelEmail,
		To:      "user@example.com",
		Subject: "Payment due: ₹500",
		Text:    "line one\nline two",
	}, now))
	if !strings.Contains(raw, "From: \"Duemate\" <no-reply@duemate.app>\r\n") {
		t.Fatalf("expected quoted from header, got %q", raw)
	}
	if !strings.Contains(raw, "To: <user@example.com>\r\n") {
		t.Fatalf("expected to header, got %q", raw)
	}
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject, got %q", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two") {
		t.Fatalf("expected crlf body, got %q", raw)
	}
}

func TestNewSMTPSenderValidates(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "no-reply@duemate.app"}); err == nil {
		t.Fatalf("expected error without host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "not an address"}); err == nil {
		t.Fatalf("expected error for invalid from")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "no-reply@duemate.app", FromName: "Duemate"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.cfg.Port != 587 || s.from.Name != "Duemate" {
		t.Fatalf("unexpected sender config %+v", s.cfg)
	}
	err = s.Send(context.Background(), Message{Channel: domain.ChannelPhone, To: "+911234567890"})
	if !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected ErrUnsupportedChannel, got %v", err)
	}
}

func TestSMTPSenderDialFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "no-reply@duemate.app"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}
	err = s.Send(context.Background(), Message{Channel: domain.ChannelEmail, To: "user@example.com"})
	if err == nil || !strings.Contains(err.Error(), "smtp dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}
