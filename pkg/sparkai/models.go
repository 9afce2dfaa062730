package sparkai

import (
	"encoding/json"
	"strings"
	"time"
)

// CampaignStatus is the normalized lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusUnknown   CampaignStatus = "unknown"
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusInitiated CampaignStatus = "initiated"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusStopped   CampaignStatus = "stopped"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// NormalizeStatus maps the backend's status vocabulary onto CampaignStatus.
// Internal code never branches on raw backend strings.
func NormalizeStatus(raw string) CampaignStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "draft", "":
		return CampaignStatusDraft
	case "initiated", "pending", "scheduled":
		return CampaignStatusInitiated
	case "active", "running", "in-progress", "in_progress", "calling", "ringing":
		return CampaignStatusRunning
	case "paused":
		return CampaignStatusPaused
	case "stopped", "cancelled", "canceled":
		return CampaignStatusStopped
	case "completed", "finished", "done":
		return CampaignStatusCompleted
	default:
		return CampaignStatusUnknown
	}
}

// UnmarshalJSON normalizes the wire value
func (s *CampaignStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeStatus(raw)
	return nil
}

// AIConfig holds the calling agent configuration
type AIConfig struct {
	InitialMessage string `json:"initialMessage,omitempty"`
	SystemPersona  string `json:"systemPersona,omitempty"`
}

// KnowledgeBaseDocument is an uploaded reference document
type KnowledgeBaseDocument struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	DocumentID string `json:"documentId,omitempty"`
}

// Lead is one contact targeted by a campaign
type Lead struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	ContactNo string `json:"contactNo"`
	Email     string `json:"email,omitempty"`
}

// Campaign is the backend's campaign record
type Campaign struct {
	ID              string                  `json:"id,omitempty"`
	Name            string                  `json:"name"`
	Status          CampaignStatus          `json:"status"`
	FirstPrompt     string                  `json:"firstPrompt,omitempty"`
	SystemPersona   string                  `json:"systemPersona,omitempty"`
	AIConfig        AIConfig                `json:"aiConfig"`
	SelectedVoiceID string                  `json:"selectedVoiceId,omitempty"`
	SelectedVoice   string                  `json:"selectedVoice,omitempty"`
	KnowledgeBase   []KnowledgeBaseDocument `json:"knowledgeBase"`
	KnowledgeBaseID string                  `json:"knowledgeBaseId,omitempty"`
	Leads           []Lead                  `json:"leads"`
	TotalLeads      int                     `json:"totalLeads"`
	CompletedCalls  int                     `json:"completedCalls"`
	SuccessfulCalls int                     `json:"successfulCalls"`
	FailedCalls     int                     `json:"failedCalls"`
	CreatedAt       *time.Time              `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time              `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts both "id" and Mongo-style "_id"
func (c *Campaign) UnmarshalJSON(data []byte) error {
	type alias Campaign
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.MongoID
	}
	return nil
}

// CallRecord is one entry of a campaign's call history
type CallRecord struct {
	LeadName  string     `json:"leadName,omitempty"`
	ContactNo string     `json:"contactNo"`
	Status    string     `json:"status"`
	Duration  int        `json:"duration,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	CalledAt  *time.Time `json:"calledAt,omitempty"`
}

// StatusReport is the result of a campaign status poll
type StatusReport struct {
	Status             CampaignStatus `json:"status"`
	TotalLeads         int            `json:"totalLeads"`
	CompletedCalls     int            `json:"completedCalls"`
	SuccessfulCalls    int            `json:"successfulCalls"`
	PendingCalls       int            `json:"pendingCalls"`
	ProgressPercentage float64        `json:"progressPercentage"`
	CallHistory        []CallRecord   `json:"callHistory"`
	StartedAt          *time.Time     `json:"startedAt,omitempty"`
	LastCallAt         *time.Time     `json:"lastCallAt,omitempty"`
}

// User is the authenticated account profile
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	CompanyName    string  `json:"companyName,omitempty"`
	CreditsBalance float64 `json:"creditsBalance"`
}

// Voice is an entry in the voice catalog
type Voice struct {
	ID       string `json:"voiceId"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Credits is the user's remaining usage quota
type Credits struct {
	Balance float64 `json:"creditsBalance"`
}
