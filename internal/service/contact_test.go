package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

func newContactService(api *fakeAdminAPI) *service.ContactService {
	return service.NewContactService(api, 5*time.Second, observability.NewMetrics(), zap.NewNop())
}

func validSubmission() *domain.ContactSubmission {
	return &domain.ContactSubmission{
		Name:       "Sam Prospect",
		Email:      "sam@prospect.io",
		Company:    "Prospect GmbH",
		Service:    "seo",
		Message:    "We'd like a quote for a site relaunch.",
		RenderedAt: time.Now().Add(-30 * time.Second),
	}
}

func TestContactSubmit_Accepted(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := newContactService(api)

	if err := svc.Submit(context.Background(), validSubmission()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if api.sendCalls != 1 {
		t.Errorf("expected one email dispatch, got %d", api.sendCalls)
	}
}

func TestContactSubmit_HoneypotRejectedWithoutDispatch(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := newContactService(api)

	sub := validSubmission()
	sub.Website = "https://bot.example"

	err := svc.Submit(context.Background(), sub)
	var spam *domain.ErrSpam
	if !errors.As(err, &spam) {
		t.Fatalf("expected ErrSpam, got %v", err)
	}
	if api.sendCalls != 0 {
		t.Error("a honeypot hit must never reach the email sender")
	}
}

func TestContactSubmit_TooFastRejectedWithoutDispatch(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := newContactService(api)

	sub := validSubmission()
	sub.RenderedAt = time.Now().Add(-2 * time.Second)

	err := svc.Submit(context.Background(), sub)
	var spam *domain.ErrSpam
	if !errors.As(err, &spam) {
		t.Fatalf("expected ErrSpam for a 2s fill, got %v", err)
	}
	if api.sendCalls != 0 {
		t.Error("a too-fast submission must never reach the email sender")
	}
}

func TestContactSubmit_MissingRenderedAtRejected(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := newContactService(api)

	sub := validSubmission()
	sub.RenderedAt = time.Time{}

	err := svc.Submit(context.Background(), sub)
	var spam *domain.ErrSpam
	if !errors.As(err, &spam) {
		t.Fatalf("expected ErrSpam for a missing render timestamp, got %v", err)
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	svc := newContactService(&fakeAdminAPI{})

	cases := []struct {
		name   string
		mutate func(*domain.ContactSubmission)
	}{
		{"empty name", func(s *domain.ContactSubmission) { s.Name = " " }},
		{"bad email", func(s *domain.ContactSubmission) { s.Email = "not-an-email" }},
		{"empty message", func(s *domain.ContactSubmission) { s.Message = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := validSubmission()
			tc.mutate(sub)
			err := svc.Submit(context.Background(), sub)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestContactSubmit_DispatchFailureSurfaces(t *testing.T) {
	api := &fakeAdminAPI{sendErr: &domain.ErrExternalService{Service: "supabase", Err: errors.New("down")}}
	svc := newContactService(api)

	err := svc.Submit(context.Background(), validSubmission())
	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected the dispatch failure to surface, got %v", err)
	}
}
