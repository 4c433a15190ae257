package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fitnease/comms/internal/config"
)

// Ticket error codes the Expo push API reports for permanently dead tokens.
const (
	ErrDeviceNotRegistered = "DeviceNotRegistered"
	ErrInvalidCredentials  = "InvalidCredentials"
)

// Message is one push message in a batch submitted to the Expo push API.
type Message struct {
	To               string            `json:"to"`
	Title            string            `json:"title,omitempty"`
	Body             string            `json:"body,omitempty"`
	Data             map[string]string `json:"data,omitempty"`
	Sound            string            `json:"sound,omitempty"`
	Priority         string            `json:"priority,omitempty"`
	ChannelID        string            `json:"channelId,omitempty"`
	ContentAvailable bool              `json:"_contentAvailable,omitempty"`
}

// TicketDetails carries the error code of a failed ticket.
type TicketDetails struct {
	Error string `json:"error,omitempty"`
}

// Ticket is the per-message receipt. The API returns one ticket per submitted
// message, in submission order.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details *TicketDetails `json:"details,omitempty"`
}

// IsError reports whether the ticket records a delivery failure.
func (t Ticket) IsError() bool { return t.Status == "error" }

// ErrorCode returns the ticket's error code, or "unknown" when absent.
func (t Ticket) ErrorCode() string {
	if t.Details != nil && t.Details.Error != "" {
		return t.Details.Error
	}
	return "unknown"
}

// Gateway submits push message batches and returns ordered tickets.
type Gateway interface {
	SendBatch(ctx context.Context, messages []Message) ([]Ticket, error)
}

type client struct {
	httpClient *http.Client
	url        string
}

// NewClient builds an Expo push API client with a bounded request timeout.
func NewClient(cfg *config.Config) Gateway {
	return &client{
		httpClient: &http.Client{Timeout: cfg.ExpoPushTimeout},
		url:        cfg.ExpoPushURL,
	}
}

func (c *client) SendBatch(ctx context.Context, messages []Message) ([]Ticket, error) {
	body, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expo push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo push returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []Ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode expo push response: %w", err)
	}
	if len(envelope.Data) != len(messages) {
		return nil, fmt.Errorf("expo push returned %d tickets for %d messages", len(envelope.Data), len(messages))
	}
	return envelope.Data, nil
}
