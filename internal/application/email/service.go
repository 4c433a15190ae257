package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/infrastructure/smtp"
	"github.com/fitnease/comms/internal/pkg/id"
	"github.com/fitnease/comms/internal/pkg/validate"
)

type SendVerificationRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Code   string `json:"verification_code" validate:"required"`
}

type SendWelcomeRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Service sends transactional email. Verification emails also leave an
// email_verification notification row so the app can show a pending banner.
type Service interface {
	SendVerification(ctx context.Context, req SendVerificationRequest) error
	SendWelcome(ctx context.Context, req SendWelcomeRequest) error
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type service struct {
	mailer smtp.Mailer
	repo   notificationStore
	now    func() time.Time
}

func NewService(mailer smtp.Mailer, repo notificationStore) Service {
	return &service{mailer: mailer, repo: repo, now: time.Now}
}

func (s *service) SendVerification(ctx context.Context, req SendVerificationRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	body := fmt.Sprintf(
		"Welcome to FitNEase!\r\n\r\nYour email verification code is: %s\r\n\r\nThe code expires in 15 minutes. If you did not create an account, you can ignore this email.",
		req.Code)
	if err := s.mailer.SendEmail(req.Email, "Verify your FitNEase email", body); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	now := s.now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         req.UserID,
		Type:           domain.TypeEmailVerification,
		Title:          "Verify your email",
		Message:        "A verification code was sent to " + req.Email,
		IsSent:         true,
		EmailSent:      true,
		SentAt:         &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		// The email is already out; losing the row only loses the banner.
		slog.Error("record verification notification failed", "user_id", req.UserID, "error", err)
	}

	slog.Info("verification email sent", "user_id", req.UserID)
	return nil
}

func (s *service) SendWelcome(ctx context.Context, req SendWelcomeRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nYour email is verified and your FitNEase account is ready. Time to set up your first workout!",
		req.Name)
	if err := s.mailer.SendEmail(req.Email, "Welcome to FitNEase", body); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	slog.Info("welcome email sent", "email_domain", emailDomain(req.Email))
	return nil
}

func emailDomain(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			return addr[i+1:]
		}
	}
	return ""
}
