package api

import (
	"context"
	"fmt"

	"homescout/internal/model"
	"homescout/internal/session"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login signs in, stores the bearer token and profile, and announces the
// new session on the bus. The refresh cookie lands in the cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var resp authResponse
	if err := c.doPost(ctx, "/api/v1/auth/login", credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if err := c.storeSession(resp); err != nil {
		return nil, err
	}
	c.bus.Publish(session.Event{Type: session.EventLoggedIn, Payload: resp.User.ID})
	return &resp.User, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	body := struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{name, email, password}

	var resp authResponse
	if err := c.doPost(ctx, "/api/v1/auth/register", body, &resp); err != nil {
		return nil, err
	}
	if err := c.storeSession(resp); err != nil {
		return nil, err
	}
	c.bus.Publish(session.Event{Type: session.EventLoggedIn, Payload: resp.User.ID})
	return &resp.User, nil
}

func (c *Client) storeSession(resp authResponse) error {
	if err := c.store.SetToken(resp.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := c.store.SetUser(&resp.User); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Refresh exchanges the refresh cookie for a new bearer token. It
// implements auth.Refresher; the coordinator is the only caller.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doPost(ctx, "/api/v1/auth/refresh-token", nil, &resp); err != nil {
		return "", err
	}
	if err := c.store.SetToken(resp.Token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return resp.Token, nil
}

// Logout revokes the refresh cookie server-side and clears the local
// session either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doPost(ctx, "/api/v1/auth/logout", nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	c.bus.Publish(session.Event{Type: session.EventLoggedOut})
	return err
}

// ForgotPassword requests a reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{email}
	return c.doPost(ctx, "/api/v1/auth/forgot-password", body, nil)
}

// ResetPassword completes a reset started via email.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}{resetToken, newPassword}
	return c.doPost(ctx, "/api/v1/auth/reset-password", body, nil)
}

// RefreshProfile re-fetches the signed-in user's profile and updates the
// cached copy.
func (c *Client) RefreshProfile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.doGet(ctx, "/api/v1/users/me", &u); err != nil {
		return nil, err
	}
	if err := c.store.SetUser(&u); err != nil {
		return nil, err
	}
	c.bus.Publish(session.Event{Type: session.EventProfileRefreshed, Payload: u.ID})
	return &u, nil
}
