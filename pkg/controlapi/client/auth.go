package client

import "time"

// LoginResult carries the issued session token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates with the operator's shared secret and returns a
// session token, mirroring the single-operator session model described
// in pkg/controlapi/auth.
func (c *Client) Login(secret, subject string) (*LoginResult, error) {
	req := struct {
		Secret  string `json:"secret"`
		Subject string `json:"subject"`
	}{Secret: secret, Subject: subject}

	var resp LoginResult
	if err := c.post("/api/v1/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports whether the daemon is reachable and how many IPC
// processes it has bound.
func (c *Client) Health() (boundIPCPs int, err error) {
	var resp struct {
		BoundIPCPs int `json:"bound_ipcps"`
	}
	if err := c.get("/health", &resp); err != nil {
		return 0, err
	}
	return resp.BoundIPCPs, nil
}
