package sparkai

import "context"

// AuthService handles session endpoints
type AuthService struct {
	client *Client
}

// AuthStatus is the backend's view of the current session
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// LoginResult carries the issued token and profile
type LoginResult struct {
	Token   string `json:"token"`
	User    *User  `json:"user"`
	Message string `json:"message,omitempty"`
}

// Status asks the backend whether the current token is still valid
func (s *AuthService) Status(ctx context.Context) (*AuthStatus, error) {
	var result AuthStatus
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   "/api/auth/status",
	}, &result)
	return &result, err
}

// Login exchanges credentials for a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	}, &result)
	return &result, err
}

// Logout invalidates the server-side session. token overrides the client's
// token source, since callers usually forget the local token first.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	opts := RequestOptions{
		Method: "POST",
		Path:   "/api/auth/logout",
	}
	if token != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return s.client.Request(ctx, opts, nil)
}
