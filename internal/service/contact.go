package service

import (
	"context"
	"strings"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/port"

	"go.uber.org/zap"
)

// ContactService handles the public marketing-site contact form.
// Anti-abuse checks run before any network call: a filled honeypot
// field or a submission faster than a human could type it is rejected
// without reaching the email sender.
type ContactService struct {
	adminAPI    port.AdminAPI
	metrics     *observability.Metrics
	logger      *zap.Logger
	minFillTime time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func NewContactService(adminAPI port.AdminAPI, minFillTime time.Duration, metrics *observability.Metrics, logger *zap.Logger) *ContactService {
	return &ContactService{
		adminAPI:    adminAPI,
		metrics:     metrics,
		logger:      logger,
		minFillTime: minFillTime,
		now:         time.Now,
	}
}

// Submit validates and forwards a contact submission.
func (s *ContactService) Submit(ctx context.Context, sub *domain.ContactSubmission) error {
	// Honeypot: the website field is hidden in the form; only bots fill it.
	if sub.Website != "" {
		s.reject("honeypot")
		return &domain.ErrSpam{}
	}
	// Minimum fill time. A missing RenderedAt also counts as too fast:
	// legitimate forms always stamp it.
	if sub.RenderedAt.IsZero() || s.now().Sub(sub.RenderedAt) < s.minFillTime {
		s.reject("fill_time")
		return &domain.ErrSpam{}
	}

	if strings.TrimSpace(sub.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if !strings.Contains(sub.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if strings.TrimSpace(sub.Message) == "" {
		return &domain.ErrValidation{Field: "message", Message: "required"}
	}

	if err := s.adminAPI.SendContactEmail(ctx, sub); err != nil {
		s.logger.Error("contact: email dispatch failed", zap.Error(err))
		return err
	}

	s.metrics.IncrContact("accepted")
	s.logger.Info("contact submission accepted",
		zap.String("service", sub.Service),
	)
	return nil
}

func (s *ContactService) reject(signal string) {
	s.metrics.IncrContact("rejected")
	// The signal is logged, never disclosed to the caller.
	s.logger.Info("contact submission rejected", zap.String("signal", signal))
}
