package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMS posts messages to an HTTP SMS gateway as JSON:
//
//	{"from": "...", "to": "...", "text": "..."}
//
// Any non-2xx answer is a dispatch failure.
type SMS struct {
	url    string
	apiKey string
	sender string
	client *http.Client
}

// NewSMS creates an SMS channel. A nil client gets a 10 second timeout.
func NewSMS(gatewayURL, apiKey, sender string, client *http.Client) (*SMS, error) {
	if gatewayURL == "" {
		return nil, errors.New("sms gateway url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMS{url: gatewayURL, apiKey: apiKey, sender: sender, client: client}, nil
}

type smsPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SMS) Send(ctx context.Context, address, message string) error {
	body, err := json.Marshal(smsPayload{From: s.sender, To: address, Text: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}
