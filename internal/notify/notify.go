// Package notify delivers best-effort push notifications. Delivery failures
// are the caller's to log; they never affect the operation that triggered
// them.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskhub/internal/config"
)

type pushRequest struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Push struct {
	cfg    config.NotifyConfig
	client *http.Client
}

func NewPush(cfg config.NotifyConfig) *Push {
	return &Push{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// InvitationCreated tells the invitee they have a pending invitation. With no
// push endpoint configured it is a no-op.
func (p *Push) InvitationCreated(email, projectName string) error {
	if p.cfg.URL == "" {
		return nil
	}

	body := pushRequest{
		To:    email,
		Title: "Project invitation",
		Body:  fmt.Sprintf("You have been invited to join %s", projectName),
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", p.cfg.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push API error: status %d", resp.StatusCode)
	}

	return nil
}
