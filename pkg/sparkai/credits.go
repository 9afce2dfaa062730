package sparkai

import "context"

// CreditsService handles usage quota calls
type CreditsService struct {
	client *Client
}

// Get returns the user's remaining credits
func (s *CreditsService) Get(ctx context.Context) (*Credits, error) {
	var result Credits
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   "/api/credits",
	}, &result)
	return &result, err
}
