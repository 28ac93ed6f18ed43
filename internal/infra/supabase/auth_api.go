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
// GoTrue (Supabase Auth) — implements port.IdentityProvider
// ============================================================

type gotrueSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignInWithPassword exchanges (email, password) for a session via the
// GoTrue password grant. A 400/401/403 from the provider is a credential
// rejection; transport failures are surfaced distinctly so callers can
// tell "unreachable" apart from "rejected".
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignInWithPassword")
	defer span.End()

	payload, err := encodeBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("gotrue: sign-in request failed", zap.Error(err))
		return nil, classifyTransportErr("signInWithPassword", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		c.logger.Debug("gotrue: credentials rejected", zap.Int("status", resp.StatusCode))
		return nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	default:
		c.logger.Warn("gotrue: unexpected sign-in status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrExternalService{
			Service: "supabase/auth",
			Err:     fmt.Errorf("gotrue returned status %d", resp.StatusCode),
		}
	}

	var gs gotrueSession
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("decode gotrue session: %w", err)
	}

	return &domain.Session{
		AccessToken:  gs.AccessToken,
		RefreshToken: gs.RefreshToken,
		ExpiresIn:    gs.ExpiresIn,
		TokenType:    gs.TokenType,
		UserID:       gs.User.ID,
		UserEmail:    gs.User.Email,
	}, nil
}

// SignOut invalidates the session with GoTrue. The caller clears local
// state regardless of the outcome here.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	reqURL := fmt.Sprintf("%s/auth/v1/logout", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return err
	}
	c.setAuthHeaders(req, accessToken)

	resp, err := c.do(req)
	if err != nil {
		c.logger.Warn("gotrue: sign-out request failed", zap.Error(err))
		return classifyTransportErr("signOut", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gotrue logout returned %d", resp.StatusCode)
	}
	return nil
}

// GetUser resolves an access token into the identity it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (string, string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	reqURL := fmt.Sprintf("%s/auth/v1/user", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", "", err
	}
	c.setAuthHeaders(req, accessToken)

	resp, err := c.do(req)
	if err != nil {
		return "", "", classifyTransportErr("getUser", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", "", &domain.ErrUnauthorized{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("gotrue user returned %d: %s", resp.StatusCode, string(body))
	}

	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return "", "", fmt.Errorf("decode gotrue user: %w", err)
	}
	return u.ID, u.Email, nil
}

// UpdateUserPassword sets a new password for the session's identity.
func (c *Client) UpdateUserPassword(ctx context.Context, accessToken, newPassword string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUserPassword")
	defer span.End()

	payload, err := encodeBody(map[string]string{"password": newPassword})
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/auth/v1/user", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setAuthHeaders(req, accessToken)

	resp, err := c.do(req)
	if err != nil {
		return classifyTransportErr("updateUser", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return &domain.ErrUnauthorized{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gotrue update user returned %d", resp.StatusCode)
	}
	return nil
}

// ResetPasswordForEmail triggers the provider's recovery email. The
// response is identical whether or not the email exists.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ResetPasswordForEmail")
	defer span.End()

	payload, err := encodeBody(map[string]string{"email": email})
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/auth/v1/recover", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setAuthHeaders(req, c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		return classifyTransportErr("resetPasswordForEmail", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gotrue recover returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request, bearer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("Content-Type", "application/json")
}
