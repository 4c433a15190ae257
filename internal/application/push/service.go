package push

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/infrastructure/expo"
)

// Service delivers push notifications to the active devices of one or more
// users. Delivery is best-effort: failures are reported through PushResult,
// never as errors, so callers can fire and forget.
type Service interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) *domain.PushResult
	SendToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) *domain.PushResult
	// SendSilentToUser sends a data-only message that wakes the app without
	// any visible alert.
	SendSilentToUser(ctx context.Context, userID string, data map[string]string) *domain.PushResult
}

type tokenStore interface {
	ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Deactivate(ctx context.Context, token string, now time.Time) error
}

type service struct {
	tokens  tokenStore
	gateway expo.Gateway
	now     func() time.Time
}

func NewService(tokens tokenStore, gateway expo.Gateway) Service {
	return &service{tokens: tokens, gateway: gateway, now: time.Now}
}

func (s *service) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) *domain.PushResult {
	return s.SendToUsers(ctx, []string{userID}, title, body, data)
}

func (s *service) SendToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) *domain.PushResult {
	tokens := s.collectTokens(ctx, userIDs)
	return s.send(ctx, tokens, func(token string) expo.Message {
		return expo.Message{
			To:        token,
			Title:     title,
			Body:      body,
			Data:      data,
			Sound:     "default",
			Priority:  "high",
			ChannelID: "default",
		}
	})
}

func (s *service) SendSilentToUser(ctx context.Context, userID string, data map[string]string) *domain.PushResult {
	tokens := s.collectTokens(ctx, []string{userID})
	return s.send(ctx, tokens, func(token string) expo.Message {
		return expo.Message{
			To:               token,
			Data:             data,
			Priority:         "normal",
			ContentAvailable: true,
		}
	})
}

func (s *service) collectTokens(ctx context.Context, userIDs []string) []string {
	var tokens []string
	for _, userID := range userIDs {
		devices, err := s.tokens.ListActiveByUser(ctx, userID)
		if err != nil {
			slog.Error("list device tokens failed", "user_id", userID, "error", err)
			continue
		}
		for _, d := range devices {
			tokens = append(tokens, d.Token)
		}
	}
	return tokens
}

func (s *service) send(ctx context.Context, tokens []string, build func(token string) expo.Message) *domain.PushResult {
	if len(tokens) == 0 {
		return &domain.PushResult{Success: false, Reason: domain.PushReasonNoTokens}
	}

	// Malformed tokens are skipped up front; the gateway would reject the
	// whole batch otherwise. Submitted tokens are tracked by index so that
	// tickets, which come back in request order, map to the right token.
	var (
		messages  []expo.Message
		submitted []string
	)
	for _, token := range tokens {
		if !domain.IsExpoPushToken(token) {
			slog.Warn("skipping malformed push token", "token_prefix", tokenPrefix(token))
			continue
		}
		messages = append(messages, build(token))
		submitted = append(submitted, token)
	}
	if len(messages) == 0 {
		return &domain.PushResult{Success: false, Reason: domain.PushReasonNoValidTokens}
	}

	tickets, err := s.gateway.SendBatch(ctx, messages)
	if err != nil {
		slog.Error("push batch failed", "count", len(messages), "error", err)
		return &domain.PushResult{Success: false, Reason: domain.PushReasonAPIError}
	}

	s.processTickets(ctx, submitted, tickets)
	return &domain.PushResult{Success: true, Sent: len(messages)}
}

// processTickets deactivates tokens whose tickets carry a permanent rejection.
// Transient errors leave the token active for the next attempt.
func (s *service) processTickets(ctx context.Context, submitted []string, tickets []expo.Ticket) {
	for i, ticket := range tickets {
		if !ticket.IsError() || i >= len(submitted) {
			continue
		}
		code := ticket.ErrorCode()
		switch code {
		case expo.ErrDeviceNotRegistered, expo.ErrInvalidCredentials:
			if err := s.tokens.Deactivate(ctx, submitted[i], s.now().UTC()); err != nil {
				slog.Error("deactivate push token failed",
					"token_prefix", tokenPrefix(submitted[i]), "error", err)
				continue
			}
			slog.Info("push token deactivated",
				"token_prefix", tokenPrefix(submitted[i]), "reason", code)
		default:
			slog.Warn("push ticket error",
				"token_prefix", tokenPrefix(submitted[i]),
				"code", code, "message", ticket.Message)
		}
	}
}

func tokenPrefix(token string) string {
	if len(token) > 20 {
		return token[:20] + "..."
	}
	return token
}
