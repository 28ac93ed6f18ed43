package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Edge functions — implements port.AdminAPI
// ============================================================

// invokeFunction POSTs a JSON payload to an edge function using the
// service role key. Edge functions are the only privileged path for
// identity provisioning and outbound email.
func (c *Client) invokeFunction(ctx context.Context, name string, payload any) ([]byte, error) {
	jsonBody, err := encodeBody(payload)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/%s", c.functionsURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("supabase: function invocation failed",
			zap.String("function", name),
			zap.Error(err),
		)
		return nil, classifyTransportErr("invoke "+name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: function non-2xx",
			zap.String("function", name),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			if resp.StatusCode == http.StatusConflict {
				return nil, &domain.ErrConflict{Message: errBody.Error}
			}
			return nil, &domain.ErrExternalService{
				Service: "supabase/functions/" + name,
				Err:     fmt.Errorf("%s", errBody.Error),
			}
		}
		return nil, fmt.Errorf("function %s returned %d: %s", name, resp.StatusCode, string(body))
	}

	return body, nil
}

// CreateUser calls the privileged manage-users function to create a
// Supabase Auth identity plus its profile row.
func (c *Client) CreateUser(ctx context.Context, req *domain.ProvisionUserRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	req.Action = "create_user"
	return c.provisionUser(ctx, req)
}

// MigrateUser calls the privileged manage-users function to create an
// identity for an existing pre-migration profile row and link it via
// auth_id.
func (c *Client) MigrateUser(ctx context.Context, req *domain.ProvisionUserRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.MigrateUser")
	defer span.End()

	req.Action = "migrate_user"
	return c.provisionUser(ctx, req)
}

func (c *Client) provisionUser(ctx context.Context, req *domain.ProvisionUserRequest) (string, error) {
	body, err := c.invokeFunction(ctx, "manage-users", req)
	if err != nil {
		return "", err
	}

	var out struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode manage-users response: %w", err)
	}
	if out.UserID == "" {
		return "", fmt.Errorf("manage-users returned no user_id")
	}

	c.logger.Info("user provisioned",
		zap.String("action", req.Action),
		zap.String("user_type", string(req.UserType)),
	)
	return out.UserID, nil
}

// SendContactEmail forwards a validated contact submission to the
// send-email function. Anti-abuse checks happen before this call.
func (c *Client) SendContactEmail(ctx context.Context, sub *domain.ContactSubmission) error {
	ctx, span := tracer.Start(ctx, "Supabase.SendContactEmail")
	defer span.End()

	payload := map[string]any{
		"type": "contact",
		"data": map[string]any{
			"name":    sub.Name,
			"email":   sub.Email,
			"company": sub.Company,
			"service": sub.Service,
			"message": sub.Message,
		},
	}
	_, err := c.invokeFunction(ctx, "send-email", payload)
	return err
}
