// Package campaign owns the campaign being configured or viewed and decides
// which actions are currently permitted on it.
package campaign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// CampaignAPI is the subset of the API client used by the controller
type CampaignAPI interface {
	List(ctx context.Context) ([]sparkai.Campaign, error)
	Details(ctx context.Context, campaignID string) (*sparkai.Campaign, error)
	Create(ctx context.Context, params sparkai.CampaignCreateParams) (*sparkai.Campaign, error)
	UpdateAgent(ctx context.Context, campaignID string, params sparkai.AgentUpdateParams) (*sparkai.Campaign, error)
	UpdateLeads(ctx context.Context, campaignID string, leads []sparkai.Lead) error
	DeleteKnowledgeBaseFile(ctx context.Context, campaignID, fileID string) error
	Launch(ctx context.Context, campaignID string) error
	Pause(ctx context.Context, campaignID string) error
	Resume(ctx context.Context, campaignID string) error
	Stop(ctx context.Context, campaignID string) error
	TestCall(ctx context.Context, params sparkai.TestCallParams) (*sparkai.TestCallResult, error)
}

// UploadAPI sends campaign attachments
type UploadAPI interface {
	KnowledgeBase(ctx context.Context, campaignID, filename string, content io.Reader) (*sparkai.KnowledgeBaseUpload, error)
	Leads(ctx context.Context, campaignID, filename string, content io.Reader) (*sparkai.LeadsUpload, error)
}

// Wallet reports the user's credit balance
type Wallet interface {
	Credits() float64
}

// ErrSuperseded is returned by Load when a later load or draft replaced it
var ErrSuperseded = errors.New("campaign load superseded by a newer request")

// slot groups mutations that replace the same part of the campaign
type slot int

const (
	slotRecord slot = iota
	slotAgent
	slotControl
	slotLeads
	slotCount
)

type ticket struct {
	gen  uint64
	slot slot
	seq  uint64
}

// Controller holds the current campaign. All backend responses are applied
// last-issued-wins per slot; responses for a campaign that has since been
// swapped out are dropped.
type Controller struct {
	mu sync.Mutex

	current   *sparkai.Campaign
	kbFiles   []KnowledgeBaseFile
	leads     []sparkai.Lead
	leadsFile string
	preview   bool
	names     map[string]string

	gen     uint64
	loadSeq uint64
	issued  [slotCount]uint64
	applied [slotCount]uint64

	onTransition []func(campaignID string, a Action)

	api     CampaignAPI
	uploads UploadAPI
	wallet  Wallet
	logger  zerolog.Logger
}

// NewController creates a controller with no campaign loaded
func NewController(api CampaignAPI, uploads UploadAPI, wallet Wallet, logger zerolog.Logger) *Controller {
	return &Controller{
		names:   make(map[string]string),
		api:     api,
		uploads: uploads,
		wallet:  wallet,
		logger:  logger.With().Str("component", "campaign").Logger(),
	}
}

// OnTransition registers a callback invoked after a backend-acknowledged transition
func (c *Controller) OnTransition(fn func(campaignID string, a Action)) {
	c.mu.Lock()
	c.onTransition = append(c.onTransition, fn)
	c.mu.Unlock()
}

func (c *Controller) issueLocked(s slot) ticket {
	c.issued[s]++
	return ticket{gen: c.gen, slot: s, seq: c.issued[s]}
}

// commitLocked reports whether a response may be applied and records it
func (c *Controller) commitLocked(t ticket) bool {
	if t.gen != c.gen || t.seq < c.applied[t.slot] {
		c.logger.Debug().Int("slot", int(t.slot)).Uint64("seq", t.seq).Msg("Discarded stale response")
		return false
	}
	c.applied[t.slot] = t.seq
	return true
}

// installLocked swaps in a new campaign and invalidates every in-flight response
func (c *Controller) installLocked(camp *sparkai.Campaign) {
	c.gen++
	c.issued = [slotCount]uint64{}
	c.applied = [slotCount]uint64{}

	c.current = camp
	c.kbFiles = nil
	c.leads = nil
	c.leadsFile = ""
	c.preview = false
	if camp == nil {
		return
	}
	if camp.Status == "" {
		camp.Status = sparkai.CampaignStatusDraft
	}
	for _, d := range camp.KnowledgeBase {
		c.kbFiles = append(c.kbFiles, fileFromDocument(d))
	}
	c.leads = cloneLeads(camp.Leads)
	if camp.ID != "" && camp.Name != "" {
		c.names[nameKey(camp.Name)] = camp.ID
	}
}

func (c *Controller) editableLocked() error {
	if c.current == nil {
		return ErrNoCampaign
	}
	if reason := editBlockReason(c.current); reason != "" {
		return &NotEditableError{Reason: reason}
	}
	return nil
}

func (c *Controller) readinessLocked() Readiness {
	return Evaluate(c.current, Attachments{KnowledgeBaseFiles: len(c.kbFiles), LeadsFile: c.leadsFile})
}

// setLeadsLocked replaces the lead list and the campaign's copy of it
func (c *Controller) setLeadsLocked(leads []sparkai.Lead) {
	c.leads = leads
	next := cloneCampaign(c.current)
	next.Leads = cloneLeads(leads)
	next.TotalLeads = len(leads)
	c.current = next
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// creditsError lets callers match backend quota failures with errors.Is
func creditsError(op string, err error) error {
	if sparkai.IsInsufficientCreditsError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrInsufficientCredits, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Snapshot returns a copy of the controller state
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Campaign:           cloneCampaign(c.current),
		KnowledgeBaseFiles: append([]KnowledgeBaseFile(nil), c.kbFiles...),
		Leads:              cloneLeads(c.leads),
		LeadsFile:          c.leadsFile,
		LeadsPreview:       c.preview,
		Warnings:           LeadWarnings(c.leads),
		Readiness:          c.readinessLocked(),
	}
	if c.current != nil {
		v.Control = ControlOf(c.current.Status)
		if c.current.ID != "" {
			v.Actions = AvailableActions(c.current.Status)
		}
	}
	return v
}

// Current returns a copy of the current campaign, or nil
func (c *Controller) Current() *sparkai.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneCampaign(c.current)
}

// Readiness evaluates the current campaign
func (c *Controller) Readiness() Readiness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readinessLocked()
}

// NewDraft starts configuring a new, unsaved campaign
func (c *Controller) NewDraft(name string) *sparkai.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadSeq++
	c.installLocked(&sparkai.Campaign{
		Name:        strings.TrimSpace(name),
		Status:      sparkai.CampaignStatusDraft,
		FirstPrompt: DefaultInitialMessage,
		AIConfig:    sparkai.AIConfig{InitialMessage: DefaultInitialMessage},
	})
	return cloneCampaign(c.current)
}

// Rename changes the name of an unsaved draft
func (c *Controller) Rename(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoCampaign
	}
	if c.current.ID != "" {
		return &ValidationError{Field: "name", Message: "cannot rename a created campaign"}
	}
	next := cloneCampaign(c.current)
	next.Name = strings.TrimSpace(name)
	c.current = next
	return nil
}

// Close forgets the current campaign
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadSeq++
	c.installLocked(nil)
}

// List fetches all campaigns and remembers their names for duplicate checks
func (c *Controller) List(ctx context.Context) ([]sparkai.Campaign, error) {
	campaigns, err := c.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	c.mu.Lock()
	c.names = make(map[string]string, len(campaigns))
	for _, camp := range campaigns {
		c.names[nameKey(camp.Name)] = camp.ID
	}
	c.mu.Unlock()
	return campaigns, nil
}

// Load fetches a campaign and makes it current
func (c *Controller) Load(ctx context.Context, campaignID string) (*sparkai.Campaign, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	camp, err := c.api.Details(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		return nil, ErrSuperseded
	}
	c.installLocked(camp)
	return cloneCampaign(c.current), nil
}

// Create saves the current draft, then uploads any staged knowledge-base
// files. Upload failures leave those files staged and are returned joined.
func (c *Controller) Create(ctx context.Context) (*sparkai.Campaign, error) {
	c.mu.Lock()
	cur := c.current
	if cur == nil {
		c.mu.Unlock()
		return nil, ErrNoCampaign
	}
	if cur.ID != "" {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "id", Message: "campaign already created"}
	}
	name := strings.TrimSpace(cur.Name)
	if name == "" {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if _, dup := c.names[nameKey(name)]; dup {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "name", Message: "a campaign with this name already exists"}
	}
	message := strings.TrimSpace(initialMessage(cur))
	if message == "" {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "initialMessage", Message: "is required"}
	}

	aiConfig := cur.AIConfig
	aiConfig.InitialMessage = message
	params := sparkai.CampaignCreateParams{
		Name:            name,
		FirstPrompt:     message,
		SystemPersona:   cur.SystemPersona,
		AIConfig:        aiConfig,
		SelectedVoiceID: cur.SelectedVoiceID,
		Leads:           cloneLeads(c.leads),
	}
	var staged []KnowledgeBaseFile
	for _, f := range c.kbFiles {
		if f.Staged {
			staged = append(staged, f)
		}
	}
	t := c.issueLocked(slotRecord)
	c.mu.Unlock()

	created, err := c.api.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	c.mu.Lock()
	if !c.commitLocked(t) {
		c.mu.Unlock()
		return cloneCampaign(created), nil
	}
	next := cloneCampaign(created)
	if next.Status == "" {
		next.Status = sparkai.CampaignStatusDraft
	}
	if len(next.Leads) == 0 && len(c.leads) > 0 {
		next.Leads = cloneLeads(c.leads)
		next.TotalLeads = len(c.leads)
	}
	c.current = next
	c.names[nameKey(next.Name)] = next.ID
	campaignID := next.ID
	c.mu.Unlock()

	c.logger.Info().Str("campaign_id", campaignID).Str("name", name).Msg("Campaign created")

	var errs []error
	for _, f := range staged {
		if err := c.uploadStaged(ctx, t.gen, campaignID, f); err != nil {
			errs = append(errs, err)
		}
	}
	return c.Current(), errors.Join(errs...)
}

func (c *Controller) uploadStaged(ctx context.Context, gen uint64, campaignID string, f KnowledgeBaseFile) error {
	res, err := c.uploads.KnowledgeBase(ctx, campaignID, f.Filename, bytes.NewReader(f.data))
	if err != nil {
		c.logger.Warn().Err(err).Str("filename", f.Filename).Msg("Staged knowledge base upload failed")
		return fmt.Errorf("upload %s: %w", f.Filename, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	for i := range c.kbFiles {
		if c.kbFiles[i].LocalID != f.LocalID {
			continue
		}
		doc := res.Document()
		c.kbFiles[i] = KnowledgeBaseFile{
			LocalID:    f.LocalID,
			BackendID:  doc.ID,
			Filename:   doc.Filename,
			DocumentID: doc.DocumentID,
		}
		if c.kbFiles[i].Filename == "" {
			c.kbFiles[i].Filename = f.Filename
		}
		next := cloneCampaign(c.current)
		next.KnowledgeBase = append(next.KnowledgeBase, doc)
		c.current = next
		break
	}
	return nil
}

// UpdateAgent changes the agent configuration. Drafts are changed locally;
// created campaigns are changed once the backend accepts the update.
func (c *Controller) UpdateAgent(ctx context.Context, u AgentUpdate) (*sparkai.Campaign, error) {
	if u.InitialMessage != nil && strings.TrimSpace(*u.InitialMessage) == "" {
		return nil, &ValidationError{Field: "initialMessage", Message: "cannot be empty"}
	}

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.current.ID == "" {
		c.current = applyAgent(c.current, u)
		out := cloneCampaign(c.current)
		c.mu.Unlock()
		return out, nil
	}
	campaignID := c.current.ID
	t := c.issueLocked(slotAgent)
	c.mu.Unlock()

	_, err := c.api.UpdateAgent(ctx, campaignID, sparkai.AgentUpdateParams{
		FirstPrompt:     u.InitialMessage,
		SystemPersona:   u.SystemPersona,
		SelectedVoiceID: u.VoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commitLocked(t) {
		c.current = applyAgent(c.current, u)
	}
	return cloneCampaign(c.current), nil
}

// SelectVoice sets the agent voice
func (c *Controller) SelectVoice(ctx context.Context, voiceID string) (*sparkai.Campaign, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, &ValidationError{Field: "voiceId", Message: "is required"}
	}
	return c.UpdateAgent(ctx, AgentUpdate{VoiceID: &voiceID})
}

func applyAgent(cur *sparkai.Campaign, u AgentUpdate) *sparkai.Campaign {
	next := cloneCampaign(cur)
	if u.InitialMessage != nil {
		next.FirstPrompt = *u.InitialMessage
		next.AIConfig.InitialMessage = *u.InitialMessage
	}
	if u.SystemPersona != nil {
		next.SystemPersona = *u.SystemPersona
		next.AIConfig.SystemPersona = *u.SystemPersona
	}
	if u.VoiceID != nil {
		next.SelectedVoiceID = *u.VoiceID
	}
	return next
}

// UploadKnowledgeBase attaches a PDF. Before the campaign is created the
// file is staged locally and uploaded by Create.
func (c *Controller) UploadKnowledgeBase(ctx context.Context, filename string, content io.Reader) (KnowledgeBaseFile, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return KnowledgeBaseFile{}, &ValidationError{Field: "file", Message: "knowledge base files must be PDFs"}
	}

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return KnowledgeBaseFile{}, err
	}
	campaignID := c.current.ID
	gen := c.gen
	c.mu.Unlock()

	if campaignID == "" {
		return c.StageKnowledgeBaseFile(filename, content)
	}

	res, err := c.uploads.KnowledgeBase(ctx, campaignID, filename, content)
	if err != nil {
		return KnowledgeBaseFile{}, creditsError("upload knowledge base", err)
	}
	doc := res.Document()
	if doc.Filename == "" {
		doc.Filename = filename
	}
	file := fileFromDocument(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.kbFiles = append(c.kbFiles, file)
		next := cloneCampaign(c.current)
		next.KnowledgeBase = append(next.KnowledgeBase, doc)
		c.current = next
	}
	return file, nil
}

// StageKnowledgeBaseFile keeps a file locally without contacting the backend
func (c *Controller) StageKnowledgeBaseFile(filename string, content io.Reader) (KnowledgeBaseFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return KnowledgeBaseFile{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(data) == 0 {
		return KnowledgeBaseFile{}, &ValidationError{Field: "file", Message: "is empty"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return KnowledgeBaseFile{}, err
	}
	f := KnowledgeBaseFile{
		LocalID:  uuid.New().String(),
		Filename: filepath.Base(filename),
		Staged:   true,
		data:     data,
	}
	c.kbFiles = append(c.kbFiles, f)
	return f, nil
}

// DeleteKnowledgeBaseFile removes a file by local or backend id. Files the
// backend never saw go immediately; others go once the DELETE succeeds.
func (c *Controller) DeleteKnowledgeBaseFile(ctx context.Context, fileID string) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	idx := -1
	for i, f := range c.kbFiles {
		if f.LocalID == fileID || (f.BackendID != "" && f.BackendID == fileID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return &ValidationError{Field: "fileId", Message: "no such knowledge base file"}
	}
	file := c.kbFiles[idx]
	if file.BackendID == "" {
		c.kbFiles = append(c.kbFiles[:idx:idx], c.kbFiles[idx+1:]...)
		c.mu.Unlock()
		return nil
	}
	campaignID := c.current.ID
	gen := c.gen
	c.mu.Unlock()

	if err := c.api.DeleteKnowledgeBaseFile(ctx, campaignID, file.BackendID); err != nil {
		return fmt.Errorf("delete %s: %w", file.Filename, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	files := c.kbFiles[:0:0]
	for _, f := range c.kbFiles {
		if f.LocalID != file.LocalID {
			files = append(files, f)
		}
	}
	c.kbFiles = files

	next := cloneCampaign(c.current)
	docs := next.KnowledgeBase[:0:0]
	for _, d := range next.KnowledgeBase {
		if d.ID != file.BackendID {
			docs = append(docs, d)
		}
	}
	next.KnowledgeBase = docs
	if next.KnowledgeBaseID == file.BackendID {
		next.KnowledgeBaseID = ""
	}
	c.current = next
	return nil
}

// UploadLeads sends a CSV for parsing and replaces the whole lead list
func (c *Controller) UploadLeads(ctx context.Context, filename string, content io.Reader) (LeadsResult, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return LeadsResult{}, &ValidationError{Field: "file", Message: "leads must be a CSV file"}
	}

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return LeadsResult{}, err
	}
	campaignID := c.current.ID
	t := c.issueLocked(slotLeads)
	c.mu.Unlock()

	res, err := c.uploads.Leads(ctx, campaignID, filename, content)
	if err != nil {
		return LeadsResult{}, fmt.Errorf("upload leads: %w", err)
	}

	out := LeadsResult{
		Count:       len(res.Leads),
		ServerCount: res.LeadsCount,
		Preview:     len(res.Leads) > 0,
		Warnings:    LeadWarnings(res.Leads),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commitLocked(t) {
		c.setLeadsLocked(cloneLeads(res.Leads))
		c.leadsFile = filename
		c.preview = out.Preview
	}
	return out, nil
}

// ClosePreview hides the lead preview
func (c *Controller) ClosePreview() {
	c.mu.Lock()
	c.preview = false
	c.mu.Unlock()
}

// EditLead replaces one lead and saves the whole list. A failed save
// restores the previous list.
func (c *Controller) EditLead(ctx context.Context, index int, lead sparkai.Lead) error {
	if err := ValidateLead(lead); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(c.leads) {
		c.mu.Unlock()
		return &ValidationError{Field: "index", Message: "out of range"}
	}
	prev := cloneLeads(c.leads)
	next := cloneLeads(c.leads)
	next[index] = lead
	c.setLeadsLocked(next)
	campaignID := c.current.ID
	t := c.issueLocked(slotLeads)
	c.commitLocked(t)
	c.mu.Unlock()

	if campaignID == "" {
		return nil
	}

	if err := c.api.UpdateLeads(ctx, campaignID, next); err != nil {
		c.mu.Lock()
		if t.gen == c.gen && t.seq == c.issued[slotLeads] {
			c.setLeadsLocked(prev)
		}
		c.mu.Unlock()
		return fmt.Errorf("save leads: %w", err)
	}
	return nil
}

// DeleteLead removes one lead and saves the whole list. The local deletion
// stands even if the save fails; the error then matches ErrLeadsOutOfSync.
func (c *Controller) DeleteLead(ctx context.Context, index int) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(c.leads) {
		c.mu.Unlock()
		return &ValidationError{Field: "index", Message: "out of range"}
	}
	next := make([]sparkai.Lead, 0, len(c.leads)-1)
	next = append(next, c.leads[:index]...)
	next = append(next, c.leads[index+1:]...)
	c.setLeadsLocked(next)
	campaignID := c.current.ID
	c.commitLocked(c.issueLocked(slotLeads))
	c.mu.Unlock()

	if campaignID == "" {
		return nil
	}

	if err := c.api.UpdateLeads(ctx, campaignID, next); err != nil {
		c.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("Lead deleted locally but save failed")
		return &LeadsOutOfSyncError{Err: err}
	}
	return nil
}

// ApplyCountryCode prefixes code to every lead without one. The change is
// local until SaveLeads.
func (c *Controller) ApplyCountryCode(code string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return 0, err
	}
	next, changed, err := ApplyCountryCode(c.leads, code)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		c.setLeadsLocked(next)
		c.commitLocked(c.issueLocked(slotLeads))
	}
	return changed, nil
}

// SaveLeads sends the whole local lead list to the backend
func (c *Controller) SaveLeads(ctx context.Context) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.current.ID == "" {
		c.mu.Unlock()
		return ErrNotPersisted
	}
	campaignID := c.current.ID
	leads := cloneLeads(c.leads)
	c.mu.Unlock()

	if err := c.api.UpdateLeads(ctx, campaignID, leads); err != nil {
		return fmt.Errorf("save leads: %w", err)
	}
	return nil
}

// TestCall places a single call to phone using the current campaign
func (c *Controller) TestCall(ctx context.Context, phone, firstName string) (*sparkai.TestCallResult, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil, ErrNoCampaign
	}
	if c.current.ID == "" {
		c.mu.Unlock()
		return nil, ErrNotPersisted
	}
	if r := c.readinessLocked(); !r.CanTestCall {
		missing := make([]Requirement, 0, len(r.Missing))
		for _, m := range r.Missing {
			if m != RequirementLeads {
				missing = append(missing, m)
			}
		}
		c.mu.Unlock()
		return nil, &NotReadyError{Missing: missing}
	}
	campaignID := c.current.ID
	c.mu.Unlock()

	if c.wallet.Credits() <= 0 {
		return nil, ErrInsufficientCredits
	}

	res, err := c.api.TestCall(ctx, sparkai.TestCallParams{
		CampaignID:  campaignID,
		PhoneNumber: strings.TrimSpace(phone),
		FirstName:   strings.TrimSpace(firstName),
	})
	if err != nil {
		return nil, creditsError("test call", err)
	}
	c.logger.Info().Str("campaign_id", campaignID).Msg("Test call placed")
	return res, nil
}

// Start launches the current campaign
func (c *Controller) Start(ctx context.Context, confirm Confirmer) error {
	return c.Transition(ctx, ActionStart, confirm)
}

// Pause pauses the current campaign
func (c *Controller) Pause(ctx context.Context, confirm Confirmer) error {
	return c.Transition(ctx, ActionPause, confirm)
}

// Resume resumes the current campaign
func (c *Controller) Resume(ctx context.Context, confirm Confirmer) error {
	return c.Transition(ctx, ActionResume, confirm)
}

// Stop stops the current campaign
func (c *Controller) Stop(ctx context.Context, confirm Confirmer) error {
	return c.Transition(ctx, ActionStop, confirm)
}

// Transition runs a control action. Guards and the confirmation run before
// any network call; the status changes only after the backend accepts.
// Transition hooks fire only when the acknowledged action is applied to the
// campaign still on display.
func (c *Controller) Transition(ctx context.Context, a Action, confirm Confirmer) error {
	c.mu.Lock()
	cur := c.current
	if cur == nil {
		c.mu.Unlock()
		return ErrNoCampaign
	}
	if cur.ID == "" {
		c.mu.Unlock()
		return ErrNotPersisted
	}
	from := statusOf(cur)
	if !a.Allowed(from) {
		c.mu.Unlock()
		return &TransitionError{Action: a, From: from}
	}
	if a == ActionStart {
		if r := c.readinessLocked(); !r.CanLaunch {
			c.mu.Unlock()
			return &NotReadyError{Missing: r.Missing}
		}
	}
	campaignID, name := cur.ID, cur.Name
	t := c.issueLocked(slotControl)
	c.mu.Unlock()

	if a == ActionStart && c.wallet.Credits() <= 0 {
		return ErrInsufficientCredits
	}
	if confirm == nil || !confirm.Confirm(ctx, a.Prompt(name)) {
		return ErrNotConfirmed
	}

	if err := c.call(ctx, a, campaignID); err != nil {
		c.logger.Warn().Err(err).Str("campaign_id", campaignID).Str("action", string(a)).Msg("Campaign action failed")
		return creditsError(string(a)+" campaign", err)
	}

	c.mu.Lock()
	if !c.commitLocked(t) {
		// Another campaign or a newer action owns the view now
		c.mu.Unlock()
		c.logger.Info().Str("campaign_id", campaignID).Str("action", string(a)).Msg("Campaign action acknowledged after view changed")
		return nil
	}
	next := cloneCampaign(c.current)
	next.Status = a.Target()
	c.current = next
	hooks := append([]func(string, Action){}, c.onTransition...)
	c.mu.Unlock()

	c.logger.Info().Str("campaign_id", campaignID).Str("action", string(a)).Msg("Campaign action applied")
	for _, fn := range hooks {
		fn(campaignID, a)
	}
	return nil
}

func (c *Controller) call(ctx context.Context, a Action, campaignID string) error {
	switch a {
	case ActionStart:
		return c.api.Launch(ctx, campaignID)
	case ActionPause:
		return c.api.Pause(ctx, campaignID)
	case ActionResume:
		return c.api.Resume(ctx, campaignID)
	case ActionStop:
		return c.api.Stop(ctx, campaignID)
	default:
		return fmt.Errorf("unknown campaign action %q", a)
	}
}

// ApplyStatusReport folds a polled status into the current campaign. The
// backend alone moves a campaign to completed.
func (c *Controller) ApplyStatusReport(campaignID string, report *sparkai.StatusReport) {
	if report == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != campaignID {
		return
	}
	next := cloneCampaign(c.current)
	if report.Status != "" && report.Status != sparkai.CampaignStatusUnknown {
		next.Status = report.Status
	}
	next.CompletedCalls = report.CompletedCalls
	next.SuccessfulCalls = report.SuccessfulCalls
	if report.TotalLeads > 0 {
		next.TotalLeads = report.TotalLeads
	}
	c.current = next
}
