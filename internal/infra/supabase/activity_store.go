package supabase

import (
	"context"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// activity_logs — implements port.ActivityStore
// ============================================================

// InsertActivityLog appends one audit entry. Rows are never updated or
// deleted afterwards.
func (c *Client) InsertActivityLog(ctx context.Context, entry *domain.ActivityLog) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertActivityLog")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data := map[string]any{
		"id":            entry.ID,
		"admin_user_id": entry.AdminUserID,
		"action_type":   entry.ActionType,
		"entity_type":   entry.EntityType,
		"entity_id":     entry.EntityID,
		"description":   entry.Description,
		"metadata":      entry.Metadata,
		"created_at":    entry.CreatedAt.Format(time.RFC3339),
	}

	_, err := c.doPost(ctx, "activity_logs", data)
	return err
}
