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

func newInvoiceService(store *fakeStore, audit *fakeAudit) *service.InvoiceService {
	return service.NewInvoiceService(store, audit, observability.NewMetrics(), zap.NewNop())
}

func invoiceRequest(lines []domain.LineItemInput, taxRate float64) *domain.UpsertInvoiceRequest {
	return &domain.UpsertInvoiceRequest{
		ClientID:      "client-1",
		InvoiceNumber: "INV-0042",
		IssueDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		TaxRate:       taxRate,
		LineItems:     lines,
	}
}

func TestCreateInvoice_TotalsDerivedFromLines(t *testing.T) {
	var stored *domain.Invoice
	store := &fakeStore{
		CreateInvoiceFn: func(_ context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
			out := *inv
			out.ID = "invoice-1"
			stored = &out
			return &out, nil
		},
	}
	svc := newInvoiceService(store, &fakeAudit{})

	lines := []domain.LineItemInput{
		{Description: "SEO retainer", Quantity: 1, UnitPrice: 1500},
		{Description: "Landing pages", Quantity: 3, UnitPrice: 420.50},
	}
	inv, err := svc.CreateInvoice(context.Background(), manager, invoiceRequest(lines, 20))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 1500 + 3*420.50 = 2761.50; tax 20% = 552.30; total 3313.80
	if stored.Subtotal != 2761.50 {
		t.Errorf("expected subtotal 2761.50, got %v", stored.Subtotal)
	}
	if stored.TaxAmount != 552.30 {
		t.Errorf("expected tax 552.30, got %v", stored.TaxAmount)
	}
	if stored.TotalAmount != 3313.80 {
		t.Errorf("expected total 3313.80, got %v", stored.TotalAmount)
	}
	if len(inv.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(inv.LineItems))
	}
	if inv.LineItems[1].Amount != 1261.50 {
		t.Errorf("line amount must be qty*unit_price, got %v", inv.LineItems[1].Amount)
	}
	if inv.LineItems[0].SortOrder != 0 || inv.LineItems[1].SortOrder != 1 {
		t.Error("line items must keep submission order")
	}
}

func TestCreateInvoice_RoundsToCents(t *testing.T) {
	var stored *domain.Invoice
	store := &fakeStore{
		CreateInvoiceFn: func(_ context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
			stored = inv
			out := *inv
			out.ID = "invoice-1"
			return &out, nil
		},
	}
	svc := newInvoiceService(store, &fakeAudit{})

	// 3 * 0.333 = 0.999 → 1.00 after rounding
	lines := []domain.LineItemInput{{Description: "Fraction", Quantity: 3, UnitPrice: 0.333}}
	_, err := svc.CreateInvoice(context.Background(), manager, invoiceRequest(lines, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stored.Subtotal != 1.00 {
		t.Errorf("expected subtotal rounded to 1.00, got %v", stored.Subtotal)
	}
}

func TestCreateInvoice_LineInsertFails_PartialFailure(t *testing.T) {
	store := &fakeStore{
		InsertLineItemsFn: func(_ context.Context, _ string, _ []domain.InvoiceLineItem) error {
			return errors.New("postgrest unavailable")
		},
	}
	svc := newInvoiceService(store, &fakeAudit{})

	lines := []domain.LineItemInput{{Description: "Retainer", Quantity: 1, UnitPrice: 100}}
	inv, err := svc.CreateInvoice(context.Background(), manager, invoiceRequest(lines, 0))

	var partial *domain.ErrPartialFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected ErrPartialFailure, got %v", err)
	}
	if inv == nil || inv.ID != "invoice-1" {
		t.Error("the committed invoice header must be returned")
	}
}

func TestUpdateInvoice_ReplacesLineItems(t *testing.T) {
	var deleted bool
	var inserted []domain.InvoiceLineItem
	var patched map[string]any
	store := &fakeStore{
		GetInvoiceFn: func(_ context.Context, id string) (*domain.Invoice, error) {
			return &domain.Invoice{ID: id, InvoiceNumber: "INV-0042"}, nil
		},
		UpdateInvoiceFn: func(_ context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
			patched = updates
			return &domain.Invoice{ID: id, InvoiceNumber: "INV-0042", TotalAmount: updates["total_amount"].(float64)}, nil
		},
		DeleteLineItemsFn: func(_ context.Context, _ string) error {
			deleted = true
			return nil
		},
		InsertLineItemsFn: func(_ context.Context, _ string, items []domain.InvoiceLineItem) error {
			if !deleted {
				t.Error("old line items must be deleted before the new set is inserted")
			}
			inserted = items
			return nil
		},
	}
	svc := newInvoiceService(store, &fakeAudit{})

	lines := []domain.LineItemInput{
		{Description: "New scope", Quantity: 2, UnitPrice: 800},
	}
	inv, err := svc.UpdateInvoice(context.Background(), manager, "invoice-1", invoiceRequest(lines, 10))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(inserted) != 1 || inserted[0].Amount != 1600 {
		t.Errorf("expected replacement set with recomputed amounts, got %+v", inserted)
	}
	// 1600 + 10% = 1760
	if patched["total_amount"].(float64) != 1760 {
		t.Errorf("expected recomputed total 1760, got %v", patched["total_amount"])
	}
	if inv.LineItems[0].Description != "New scope" {
		t.Errorf("response must carry the new line set, got %+v", inv.LineItems)
	}
}

func TestUpdateInvoice_PaidAtOnlyOnTransition(t *testing.T) {
	cases := []struct {
		name          string
		currentStatus string
		wantStamp     bool
	}{
		{"sent to paid stamps paid_at", "sent", true},
		{"editing a paid invoice keeps the original stamp", "paid", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var patched map[string]any
			store := &fakeStore{
				GetInvoiceFn: func(_ context.Context, id string) (*domain.Invoice, error) {
					return &domain.Invoice{ID: id, InvoiceNumber: "INV-0042", Status: tc.currentStatus}, nil
				},
				UpdateInvoiceFn: func(_ context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
					patched = updates
					return &domain.Invoice{ID: id, InvoiceNumber: "INV-0042", Status: "paid"}, nil
				},
			}
			svc := newInvoiceService(store, &fakeAudit{})

			req := invoiceRequest(nil, 0)
			req.Status = "paid"
			if _, err := svc.UpdateInvoice(context.Background(), manager, "invoice-1", req); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if _, ok := patched["paid_at"]; ok != tc.wantStamp {
				t.Errorf("paid_at present=%v, want %v (current status %q)", ok, tc.wantStamp, tc.currentStatus)
			}
			if patched["status"] != "paid" {
				t.Errorf("status must still be patched, got %v", patched["status"])
			}
		})
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	svc := newInvoiceService(&fakeStore{}, &fakeAudit{})

	cases := []struct {
		name string
		req  *domain.UpsertInvoiceRequest
	}{
		{"missing client", invoiceRequest(nil, 0)},
		{"negative quantity", invoiceRequest([]domain.LineItemInput{{Description: "x", Quantity: -1, UnitPrice: 10}}, 0)},
		{"negative unit price", invoiceRequest([]domain.LineItemInput{{Description: "x", Quantity: 1, UnitPrice: -10}}, 0)},
		{"tax rate out of range", invoiceRequest(nil, 150)},
	}
	cases[0].req.ClientID = ""

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(context.Background(), manager, tc.req)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
