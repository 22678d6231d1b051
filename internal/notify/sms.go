package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"duemate/internal/domain"
)

// ErrMissingCountryCode se devuelve cuando el número no empieza con "+".
var ErrMissingCountryCode = errors.New("phone number must include country code, e.g. +91")

type smsPayload struct {
	TextMessage struct {
		Text string `json:"text"`
	} `json:"textMessage"`
	PhoneNumbers []string `json:"phoneNumbers"`
}

// SMSGateway envía SMS a un gateway HTTP con autenticación básica.
type SMSGateway struct {
	url        string
	username   string
	password   string
	client     *http.Client
	maxRetries uint64
	backoff    time.Duration
}

func NewSMSGateway(url, username, password string) (*SMSGateway, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("sms gateway url is required")
	}
	return &SMSGateway{
		url:        url,
		username:   username,
		password:   password,
		client:     &http.Client{Timeout: 5 * time.Second},
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
	}, nil
}

func (g *SMSGateway) Send(ctx context.Context, msg Message) error {
	if msg.Channel != domain.ChannelPhone {
		return fmt.Errorf("%w: sms cannot send %q", ErrUnsupportedChannel, msg.Channel)
	}
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if !strings.HasPrefix(msg.To, "+") {
		return ErrMissingCountryCode
	}

	var payload smsPayload
	payload.TextMessage.Text = msg.Text
	payload.PhoneNumbers = []string{msg.To}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(g.username, g.password)

		resp, err := g.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("sms gateway request: %w", err))
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("sms gateway status %d", resp.StatusCode))
		case resp.StatusCode >= 300:
			return fmt.Errorf("sms gateway status %d", resp.StatusCode)
		}
		return nil
	})
}
