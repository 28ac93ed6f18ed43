package service

import (
	"context"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardService aggregates headline stats for the admin dashboard.
// The three source listings are independent, so they are fetched
// concurrently; any failure fails the whole aggregation.
type DashboardService struct {
	store  port.PortalStore
	logger *zap.Logger
}

func NewDashboardService(store port.PortalStore, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, logger: logger}
}

// GetStats computes the dashboard numbers. Requires view_analytics.
func (s *DashboardService) GetStats(ctx context.Context, actor *domain.AdminUser) (*domain.DashboardStats, error) {
	if !domain.HasPermission(actor, domain.PermViewAnalytics) {
		return nil, &domain.ErrForbidden{Action: "view_analytics"}
	}

	var (
		clients  []domain.Client
		projects []domain.Project
		invoices []domain.Invoice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.store.ListClients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.store.ListInvoices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("dashboard aggregation failed", zap.Error(err))
		return nil, err
	}

	stats := &domain.DashboardStats{TotalClients: len(clients)}
	for _, c := range clients {
		if c.Status == domain.ClientActive || c.Status == domain.ClientTrial {
			stats.ActiveClients++
		}
	}
	for _, p := range projects {
		switch p.Status {
		case "planning", "in_progress", "review":
			stats.OpenProjects++
		}
	}
	yearStart := time.Date(time.Now().UTC().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	for _, inv := range invoices {
		switch inv.Status {
		case "sent", "overdue":
			stats.UnpaidInvoices++
			stats.Outstanding += inv.TotalAmount
		case "paid":
			if inv.PaidAt != nil && !inv.PaidAt.Before(yearStart) {
				stats.RevenueYTD += inv.TotalAmount
			}
		}
	}
	return stats, nil
}
