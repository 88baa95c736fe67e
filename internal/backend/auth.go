package backend

import (
	"context"
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token    string
	Username string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    *string `json:"token"`
	Username string  `json:"username"`
	Message  string  `json:"message"`
}

func (r loginResponse) Validate() error {
	if r.Token == nil || *r.Token == "" {
		return Missing("token")
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var resp loginResponse
	if err := c.Post(ctx, "/api/auth/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return LoginResult{}, err
	}

	name := resp.Username
	if name == "" {
		name = username
	}
	return LoginResult{Token: *resp.Token, Username: name}, nil
}
