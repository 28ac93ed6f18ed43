package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// invoices + invoice_line_items
// ============================================================

func (c *Client) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateInvoice")
	defer span.End()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data := map[string]any{
		"id":             inv.ID,
		"client_id":      inv.ClientID,
		"invoice_number": inv.InvoiceNumber,
		"status":         inv.Status,
		"issue_date":     inv.IssueDate.Format("2006-01-02"),
		"due_date":       inv.DueDate.Format("2006-01-02"),
		"subtotal":       inv.Subtotal,
		"tax_rate":       inv.TaxRate,
		"tax_amount":     inv.TaxAmount,
		"total_amount":   inv.TotalAmount,
		"notes":          inv.Notes,
		"created_at":     now.Format(time.RFC3339),
		"updated_at":     now.Format(time.RFC3339),
	}

	body, err := c.doPost(ctx, "invoices", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Invoice](body, "invoices")
	if err != nil {
		return nil, err
	}
	if created == nil {
		inv.CreatedAt = now
		inv.UpdatedAt = now
		return inv, nil
	}
	return created, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvoice")
	defer span.End()

	path := fmt.Sprintf("invoices?id=eq.%s&limit=1", q(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	inv, err := decodeFirst[domain.Invoice](body, "invoices")
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	return inv, nil
}

func (c *Client) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvoices")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "invoices?order=issue_date.desc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Invoice](body, "invoices")
}

func (c *Client) ListInvoicesByClient(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvoicesByClient")
	defer span.End()

	path := fmt.Sprintf("invoices?client_id=eq.%s&order=issue_date.desc", q(clientID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Invoice](body, "invoices")
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateInvoice")
	defer span.End()

	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	path := fmt.Sprintf("invoices?id=eq.%s", q(id))
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetInvoice(ctx, id)
}

// InsertLineItems writes the full line-item set for an invoice. Rows
// are posted as one batch so PostgREST inserts them together.
func (c *Client) InsertLineItems(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertLineItems")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, map[string]any{
			"id":          id,
			"invoice_id":  invoiceID,
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice,
			"amount":      item.Amount,
			"sort_order":  i,
		})
	}

	_, err := c.doPost(ctx, "invoice_line_items", rows)
	return err
}

// DeleteLineItems removes every line item of an invoice. Invoice
// updates use delete-all + re-insert, not diff/patch.
func (c *Client) DeleteLineItems(ctx context.Context, invoiceID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteLineItems")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("invoice_line_items?invoice_id=eq.%s", q(invoiceID)))
}

func (c *Client) ListLineItems(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLineItems")
	defer span.End()

	path := fmt.Sprintf("invoice_line_items?invoice_id=eq.%s&order=sort_order.asc", q(invoiceID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.InvoiceLineItem](body, "invoice_line_items")
}
