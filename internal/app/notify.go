package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer sends one transactional message. The booking flow treats send
// failures as telemetry; a booking stands even when the mail bounces.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RelayMailer posts messages to an HTTP mail relay.
type RelayMailer struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewRelayMailer(url, apiKey, from string, timeout time.Duration) *RelayMailer {
	return &RelayMailer{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
	}
}

func (m *RelayMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.url == "" {
		return fmt.Errorf("mail relay not configured")
	}

	body, err := json.Marshal(map[string]string{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"html":    htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send mail: status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
