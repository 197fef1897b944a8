package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer defines the interface for outbound notification mail
type Mailer interface {
	// Send delivers one message to a recipient. Fire-and-forget with a
	// reported outcome; there is no retry contract.
	Send(to, subject, html, text string) error
}

// Resend implements the Mailer interface against the Resend email API
type Resend struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewResend creates a new Resend Mailer instance
func NewResend(apiKey, from string) (*Resend, error) {
	return NewResendWithBaseURL(apiKey, from, "https://api.resend.com")
}

// NewResendWithBaseURL creates a Resend Mailer against a custom API base
// URL, for testing
func NewResendWithBaseURL(apiKey, from, baseURL string) (*Resend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("from address is required")
	}

	return &Resend{
		apiKey:  apiKey,
		from:    from,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// resendEmailRequest represents the request body for Resend's send API
type resendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers one email via the Resend API
func (r *Resend) Send(to, subject, html, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reqBody := resendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/emails", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling resend API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
