package api

import (
	"context"
	"fmt"
	"net/http"
)

// Auth endpoints.
const (
	PathRegister = "/api/auth/register/"
	PathLogin    = "/api/auth/login/"
	PathLogout   = "/api/auth/logout/"
	PathUser     = "/api/auth/user/"
)

// Credentials is the register/login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// User is the identity the backend associates with a credential.
type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// DisplayName is the username when the backend provides one, the email
// otherwise.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Register creates an account. The returned credential is not installed on
// the client; that is the session store's job.
func (c *Client) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, PathRegister, email, password)
}

// Login exchanges email and password for a credential. As with Register, the
// credential is returned but not installed.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, PathLogin, email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, path, Credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("POST %s: response did not include a token", path)
	}
	return &out, nil
}

// Logout invalidates the credential server-side.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Post(ctx, PathLogout, nil)
	return err
}

// CurrentUser validates the installed credential and returns its identity.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, PathUser, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
