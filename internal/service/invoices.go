package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var invoiceTracer = otel.Tracer("service/invoices")

var invoiceStatuses = map[string]bool{
	"draft": true, "sent": true, "paid": true, "overdue": true, "cancelled": true,
}

// InvoiceService owns invoices and their line items. Totals are always
// derived server-side; client-submitted amounts are ignored.
type InvoiceService struct {
	store   port.PortalStore
	audit   port.AuditRecorder
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewInvoiceService(store port.PortalStore, audit port.AuditRecorder, metrics *observability.Metrics, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{store: store, audit: audit, metrics: metrics, logger: logger}
}

// computeTotals derives subtotal, tax and total from the submitted
// lines. Each amount is quantity * unit price; everything is rounded to
// cents. The returned items carry their submission order as sort order.
func computeTotals(lines []domain.LineItemInput, taxRate float64) ([]domain.InvoiceLineItem, float64, float64, float64) {
	items := make([]domain.InvoiceLineItem, 0, len(lines))
	subtotal := 0.0
	for i, in := range lines {
		amount := roundCents(in.Quantity * in.UnitPrice)
		subtotal += amount
		items = append(items, domain.InvoiceLineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
			SortOrder:   i,
		})
	}
	subtotal = roundCents(subtotal)
	taxAmount := roundCents(subtotal * taxRate / 100)
	total := roundCents(subtotal + taxAmount)
	return items, subtotal, taxAmount, total
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func validateInvoiceRequest(req *domain.UpsertInvoiceRequest) error {
	if strings.TrimSpace(req.ClientID) == "" {
		return &domain.ErrValidation{Field: "clientId", Message: "required"}
	}
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return &domain.ErrValidation{Field: "invoiceNumber", Message: "required"}
	}
	if req.Status != "" && !invoiceStatuses[req.Status] {
		return &domain.ErrValidation{Field: "status", Message: "unknown invoice status"}
	}
	if req.TaxRate < 0 || req.TaxRate > 100 {
		return &domain.ErrValidation{Field: "taxRate", Message: "must be between 0 and 100"}
	}
	for i, li := range req.LineItems {
		if strings.TrimSpace(li.Description) == "" {
			return &domain.ErrValidation{Field: fmt.Sprintf("lineItems[%d].description", i), Message: "required"}
		}
		if li.Quantity <= 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("lineItems[%d].quantity", i), Message: "must be positive"}
		}
		if li.UnitPrice < 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("lineItems[%d].unitPrice", i), Message: "must not be negative"}
		}
	}
	return nil
}

// CreateInvoice inserts the invoice header with derived totals, then
// the line items. If the item insert fails after the header committed,
// the header is kept and an ErrPartialFailure is returned so the items
// can be re-submitted via update.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor *domain.AdminUser, req *domain.UpsertInvoiceRequest) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.CreateInvoice")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}

	items, subtotal, taxAmount, total := computeTotals(req.LineItems, req.TaxRate)

	status := req.Status
	if status == "" {
		status = "draft"
	}
	inv, err := s.store.CreateInvoice(ctx, &domain.Invoice{
		ClientID:      req.ClientID,
		InvoiceNumber: req.InvoiceNumber,
		Status:        status,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		Subtotal:      subtotal,
		TaxRate:       req.TaxRate,
		TaxAmount:     taxAmount,
		TotalAmount:   total,
		Notes:         req.Notes,
	})
	if err != nil {
		s.metrics.IncrWorkflow("upsert_invoice", "failed")
		return nil, err
	}

	if len(items) > 0 {
		if err := s.store.InsertLineItems(ctx, inv.ID, items); err != nil {
			s.metrics.IncrWorkflow("upsert_invoice", "partial")
			s.logger.Warn("create invoice: line item insert failed",
				zap.String("invoice_id", inv.ID), zap.Error(err))
			return inv, &domain.ErrPartialFailure{Succeeded: "invoice", Failed: "line items", Err: err}
		}
	}
	inv.LineItems = items
	s.metrics.IncrWorkflow("upsert_invoice", "complete")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "invoice_created",
		EntityType:  "invoice",
		EntityID:    inv.ID,
		Description: fmt.Sprintf("Created invoice %s for %.2f", inv.InvoiceNumber, inv.TotalAmount),
		Metadata:    map[string]any{"client_id": inv.ClientID},
	})
	return inv, nil
}

// UpdateInvoice patches the header and replaces the full line-item set:
// delete all existing items, insert the submitted ones. Partial updates
// of individual lines are not supported; callers always send the
// complete set, and totals are recomputed from it.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, actor *domain.AdminUser, id string, req *domain.UpsertInvoiceRequest) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.UpdateInvoice")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}
	existing, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	items, subtotal, taxAmount, total := computeTotals(req.LineItems, req.TaxRate)

	updates := map[string]any{
		"invoice_number": req.InvoiceNumber,
		"issue_date":     req.IssueDate.Format("2006-01-02"),
		"due_date":       req.DueDate.Format("2006-01-02"),
		"subtotal":       subtotal,
		"tax_rate":       req.TaxRate,
		"tax_amount":     taxAmount,
		"total_amount":   total,
		"notes":          req.Notes,
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if req.Status != "" {
		updates["status"] = req.Status
		// paid_at records when the invoice entered the paid state;
		// edits to an already-paid invoice keep the original stamp.
		if req.Status == "paid" && existing.Status != "paid" {
			updates["paid_at"] = time.Now().UTC().Format(time.RFC3339)
		}
	}

	inv, err := s.store.UpdateInvoice(ctx, id, updates)
	if err != nil {
		s.metrics.IncrWorkflow("upsert_invoice", "failed")
		return nil, err
	}

	if err := s.store.DeleteLineItems(ctx, id); err != nil {
		s.metrics.IncrWorkflow("upsert_invoice", "partial")
		return inv, &domain.ErrPartialFailure{Succeeded: "invoice", Failed: "line items", Err: err}
	}
	if len(items) > 0 {
		if err := s.store.InsertLineItems(ctx, id, items); err != nil {
			s.metrics.IncrWorkflow("upsert_invoice", "partial")
			s.logger.Warn("update invoice: line item insert failed",
				zap.String("invoice_id", id), zap.Error(err))
			return inv, &domain.ErrPartialFailure{Succeeded: "invoice", Failed: "line items", Err: err}
		}
	}
	inv.LineItems = items
	s.metrics.IncrWorkflow("upsert_invoice", "complete")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "invoice_updated",
		EntityType:  "invoice",
		EntityID:    id,
		Description: fmt.Sprintf("Updated invoice %s, new total %.2f", inv.InvoiceNumber, inv.TotalAmount),
	})
	return inv, nil
}

// GetInvoice returns an invoice with its line items attached.
func (s *InvoiceService) GetInvoice(ctx context.Context, actor *domain.AdminUser, id string) (*domain.Invoice, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	return s.getWithItems(ctx, id)
}

func (s *InvoiceService) getWithItems(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return inv, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, actor *domain.AdminUser) ([]domain.Invoice, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	return s.store.ListInvoices(ctx)
}

// ListClientInvoices is the portal-side view: a client user sees only
// their own company's invoices, items included.
func (s *InvoiceService) ListClientInvoices(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	invoices, err := s.store.ListInvoicesByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		items, err := s.store.ListLineItems(ctx, invoices[i].ID)
		if err != nil {
			s.logger.Warn("list client invoices: line items unavailable",
				zap.String("invoice_id", invoices[i].ID), zap.Error(err))
			continue
		}
		invoices[i].LineItems = items
	}
	return invoices, nil
}
