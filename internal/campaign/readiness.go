package campaign

import (
	"strings"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// Requirement is a launch prerequisite
type Requirement string

const (
	RequirementInitialMessage Requirement = "initial message"
	RequirementVoice          Requirement = "voice"
	RequirementKnowledgeBase  Requirement = "knowledge base"
	RequirementLeads          Requirement = "leads"
)

// Edit block reasons, in precedence order
const (
	ReasonNotDraft  = "only draft campaigns can be edited"
	ReasonHasCalled = "campaigns that have placed calls cannot be edited"
)

// Readiness is derived from the campaign and its unsaved local attachments
type Readiness struct {
	HasInitialMessage bool          `json:"hasInitialMessage"`
	HasVoice          bool          `json:"hasVoice"`
	HasKnowledgeBase  bool          `json:"hasKnowledgeBase"`
	HasLeads          bool          `json:"hasLeads"`
	CanTestCall       bool          `json:"canTestCall"`
	CanLaunch         bool          `json:"canLaunch"`
	CanEdit           bool          `json:"canEdit"`
	EditBlockReason   string        `json:"editBlockReason,omitempty"`
	Missing           []Requirement `json:"missing"`
}

// Attachments are uploads held by the console that may not be on the campaign record yet
type Attachments struct {
	KnowledgeBaseFiles int
	LeadsFile          string
}

// Evaluate computes readiness. A nil campaign is not ready for anything.
func Evaluate(c *sparkai.Campaign, local Attachments) Readiness {
	if c == nil {
		return Readiness{EditBlockReason: "no campaign loaded"}
	}

	r := Readiness{
		HasInitialMessage: strings.TrimSpace(initialMessage(c)) != "",
		HasVoice:          c.SelectedVoiceID != "" || c.SelectedVoice != "",
		HasKnowledgeBase:  len(c.KnowledgeBase) > 0 || c.KnowledgeBaseID != "" || local.KnowledgeBaseFiles > 0,
		HasLeads:          len(c.Leads) > 0 || local.LeadsFile != "",
	}
	r.CanTestCall = r.HasInitialMessage && r.HasVoice && r.HasKnowledgeBase
	r.CanLaunch = r.CanTestCall && r.HasLeads

	if !r.HasInitialMessage {
		r.Missing = append(r.Missing, RequirementInitialMessage)
	}
	if !r.HasVoice {
		r.Missing = append(r.Missing, RequirementVoice)
	}
	if !r.HasKnowledgeBase {
		r.Missing = append(r.Missing, RequirementKnowledgeBase)
	}
	if !r.HasLeads {
		r.Missing = append(r.Missing, RequirementLeads)
	}

	r.EditBlockReason = editBlockReason(c)
	r.CanEdit = r.EditBlockReason == ""
	return r
}

func editBlockReason(c *sparkai.Campaign) string {
	switch {
	case statusOf(c) != sparkai.CampaignStatusDraft:
		return ReasonNotDraft
	case c.CompletedCalls > 0:
		return ReasonHasCalled
	default:
		return ""
	}
}

// initialMessage prefers the agent config over the legacy top-level field
func initialMessage(c *sparkai.Campaign) string {
	if c.AIConfig.InitialMessage != "" {
		return c.AIConfig.InitialMessage
	}
	return c.FirstPrompt
}
