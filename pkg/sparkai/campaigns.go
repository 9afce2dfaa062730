package sparkai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// CampaignsService handles campaign-related API calls
type CampaignsService struct {
	client *Client
}

// CampaignCreateParams represents parameters for creating a campaign
type CampaignCreateParams struct {
	Name            string   `json:"name"`
	FirstPrompt     string   `json:"firstPrompt,omitempty"`
	SystemPersona   string   `json:"systemPersona,omitempty"`
	AIConfig        AIConfig `json:"aiConfig"`
	SelectedVoiceID string   `json:"selectedVoiceId,omitempty"`
	Leads           []Lead   `json:"leads,omitempty"`
}

// AgentUpdateParams represents parameters for updating the calling agent
type AgentUpdateParams struct {
	FirstPrompt     *string `json:"firstPrompt,omitempty"`
	SystemPersona   *string `json:"systemPersona,omitempty"`
	SelectedVoiceID *string `json:"selectedVoiceId,omitempty"`
}

// TestCallParams represents parameters for a single test call
type TestCallParams struct {
	CampaignID  string `json:"campaignId"`
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName,omitempty"`
}

// TestCallResult is returned by the outbound test call endpoint
type TestCallResult struct {
	CallSID string `json:"callSid,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// CampaignList decodes either a bare array or {"campaigns": [...]}
type CampaignList []Campaign

func (l *CampaignList) UnmarshalJSON(data []byte) error {
	var bare []Campaign
	if err := json.Unmarshal(data, &bare); err == nil {
		*l = bare
		return nil
	}
	var wrapped struct {
		Campaigns []Campaign `json:"campaigns"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Campaigns
	return nil
}

// campaignEnvelope unwraps {"campaign": {...}} responses while still
// accepting a bare campaign object.
type campaignEnvelope struct {
	Campaign
}

func (e *campaignEnvelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Campaign *Campaign `json:"campaign"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Campaign != nil {
		e.Campaign = *wrapped.Campaign
		return nil
	}
	return json.Unmarshal(data, &e.Campaign)
}

func campaignPath(campaignID, suffix string) string {
	return fmt.Sprintf("/api/campaigns/%s%s", url.PathEscape(campaignID), suffix)
}

// List returns the user's campaigns
func (s *CampaignsService) List(ctx context.Context) ([]Campaign, error) {
	var result CampaignList
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   "/api/campaigns",
	}, &result)
	return result, err
}

// Details returns a campaign with its leads and knowledge base
func (s *CampaignsService) Details(ctx context.Context, campaignID string) (*Campaign, error) {
	var result campaignEnvelope
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   campaignPath(campaignID, "/details"),
	}, &result)
	return &result.Campaign, err
}

// Create creates a new campaign
func (s *CampaignsService) Create(ctx context.Context, params CampaignCreateParams) (*Campaign, error) {
	var result campaignEnvelope
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/campaigns",
		Body:   params,
	}, &result)
	return &result.Campaign, err
}

// UpdateAgent updates the agent configuration of a campaign
func (s *CampaignsService) UpdateAgent(ctx context.Context, campaignID string, params AgentUpdateParams) (*Campaign, error) {
	var result campaignEnvelope
	err := s.client.Request(ctx, RequestOptions{
		Method: "PUT",
		Path:   campaignPath(campaignID, "/update-agent"),
		Body:   params,
	}, &result)
	return &result.Campaign, err
}

// UpdateLeads replaces the campaign's entire lead list
func (s *CampaignsService) UpdateLeads(ctx context.Context, campaignID string, leads []Lead) error {
	if leads == nil {
		leads = []Lead{}
	}
	return s.client.Request(ctx, RequestOptions{
		Method: "PUT",
		Path:   campaignPath(campaignID, "/leads"),
		Body:   map[string][]Lead{"leads": leads},
	}, nil)
}

// DeleteKnowledgeBaseFile removes an uploaded document from a campaign
func (s *CampaignsService) DeleteKnowledgeBaseFile(ctx context.Context, campaignID, fileID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "DELETE",
		Path:   campaignPath(campaignID, "/knowledge-base/"+url.PathEscape(fileID)),
	}, nil)
}

// Start starts a campaign through the per-campaign control endpoint
func (s *CampaignsService) Start(ctx context.Context, campaignID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   campaignPath(campaignID, "/start"),
	}, nil)
}

// Launch starts dialing every lead of a campaign
func (s *CampaignsService) Launch(ctx context.Context, campaignID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/campaigns/start-campaign",
		Body:   map[string]string{"campaignId": campaignID},
	}, nil)
}

// Pause pauses a running campaign
func (s *CampaignsService) Pause(ctx context.Context, campaignID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   campaignPath(campaignID, "/pause"),
	}, nil)
}

// Resume resumes a paused campaign
func (s *CampaignsService) Resume(ctx context.Context, campaignID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   campaignPath(campaignID, "/resume"),
	}, nil)
}

// Stop stops a running or paused campaign
func (s *CampaignsService) Stop(ctx context.Context, campaignID string) error {
	return s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   campaignPath(campaignID, "/stop"),
	}, nil)
}

// Status returns live progress for a campaign
func (s *CampaignsService) Status(ctx context.Context, campaignID string) (*StatusReport, error) {
	var result StatusReport
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   campaignPath(campaignID, "/status"),
	}, &result)
	return &result, err
}

// TestCall places a single outbound call using the campaign's agent
func (s *CampaignsService) TestCall(ctx context.Context, params TestCallParams) (*TestCallResult, error) {
	var result TestCallResult
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/campaigns/make-outbound-call",
		Body:   params,
	}, &result)
	return &result, err
}
