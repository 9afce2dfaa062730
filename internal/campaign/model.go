package campaign

import (
	"context"

	"github.com/google/uuid"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// KnowledgeBaseFile is a knowledge-base document as the console tracks it.
// Staged files exist only locally until the campaign is created.
type KnowledgeBaseFile struct {
	LocalID    string `json:"localId"`
	BackendID  string `json:"id,omitempty"`
	Filename   string `json:"filename"`
	DocumentID string `json:"documentId,omitempty"`
	Staged     bool   `json:"staged"`

	data []byte
}

func fileFromDocument(d sparkai.KnowledgeBaseDocument) KnowledgeBaseFile {
	local := d.ID
	if local == "" {
		local = uuid.New().String()
	}
	return KnowledgeBaseFile{LocalID: local, BackendID: d.ID, Filename: d.Filename, DocumentID: d.DocumentID}
}

// AgentUpdate changes the calling agent. Nil fields are left alone.
type AgentUpdate struct {
	InitialMessage *string `json:"initialMessage,omitempty"`
	SystemPersona  *string `json:"systemPersona,omitempty"`
	VoiceID        *string `json:"voiceId,omitempty"`
}

// LeadsResult summarizes a leads CSV upload
type LeadsResult struct {
	Count       int           `json:"count"`
	ServerCount int           `json:"leadsCount"`
	Preview     bool          `json:"preview"`
	Warnings    []LeadWarning `json:"warnings,omitempty"`
}

// View is a copy of the controller state for rendering
type View struct {
	Campaign           *sparkai.Campaign   `json:"campaign"`
	KnowledgeBaseFiles []KnowledgeBaseFile `json:"knowledgeBaseFiles"`
	Leads              []sparkai.Lead      `json:"leads"`
	LeadsFile          string              `json:"leadsFile,omitempty"`
	LeadsPreview       bool                `json:"leadsPreview"`
	Warnings           []LeadWarning       `json:"warnings,omitempty"`
	Readiness          Readiness           `json:"readiness"`
	Control            ControlState        `json:"control,omitempty"`
	Actions            []Action            `json:"actions"`
}

// Confirmer asks the user a blocking yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed answers yes for callers that already collected consent
var Confirmed Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

func cloneLeads(leads []sparkai.Lead) []sparkai.Lead {
	if leads == nil {
		return nil
	}
	return append([]sparkai.Lead(nil), leads...)
}

func cloneCampaign(c *sparkai.Campaign) *sparkai.Campaign {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Leads = cloneLeads(c.Leads)
	if c.KnowledgeBase != nil {
		cp.KnowledgeBase = append([]sparkai.KnowledgeBaseDocument(nil), c.KnowledgeBase...)
	}
	return &cp
}
