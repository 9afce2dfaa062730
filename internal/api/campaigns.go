package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bvrai/campaign-console/internal/campaign"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// CampaignSummary is one row of the campaign list
type CampaignSummary struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Status         sparkai.CampaignStatus `json:"status"`
	Control        campaign.ControlState  `json:"control"`
	TotalLeads     int                    `json:"totalLeads"`
	CompletedCalls int                    `json:"completedCalls"`
}

func (rt *Router) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := rt.campaigns.List(r.Context())
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	resp := make([]CampaignSummary, len(campaigns))
	for i, c := range campaigns {
		resp[i] = CampaignSummary{
			ID:             c.ID,
			Name:           c.Name,
			Status:         c.Status,
			Control:        campaign.ControlOf(c.Status),
			TotalLeads:     c.TotalLeads,
			CompletedCalls: c.CompletedCalls,
		}
	}
	rt.respondJSON(w, http.StatusOK, resp)
}

// DraftRequest names a new or unsaved campaign
type DraftRequest struct {
	Name string `json:"name"`
}

func (rt *Router) handleNewDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !rt.decode(w, r, &req) {
		return
	}
	rt.campaigns.NewDraft(req.Name)
	rt.respondJSON(w, http.StatusCreated, rt.campaigns.Snapshot())
}

// handleCreateCampaign saves the current draft, optionally renaming it first
func (rt *Router) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if r.ContentLength != 0 && !rt.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		if err := rt.campaigns.Rename(req.Name); err != nil {
			rt.respondErr(w, err)
			return
		}
	}

	created, err := rt.campaigns.Create(r.Context())
	switch {
	case err != nil && created == nil:
		rt.respondErr(w, err)
	case err != nil:
		// Created, but a staged knowledge base upload failed
		rt.respondJSON(w, http.StatusCreated, map[string]interface{}{
			"view":    rt.campaigns.Snapshot(),
			"warning": err.Error(),
		})
	default:
		rt.respondJSON(w, http.StatusCreated, rt.campaigns.Snapshot())
	}
}

func (rt *Router) handleLoadCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if _, err := rt.campaigns.Load(r.Context(), campaignID); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func (rt *Router) handleCurrentCampaign(w http.ResponseWriter, r *http.Request) {
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func (rt *Router) handleCloseCampaign(w http.ResponseWriter, r *http.Request) {
	rt.campaigns.Close()
	rt.respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (rt *Router) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req campaign.AgentUpdate
	if !rt.decode(w, r, &req) {
		return
	}
	if _, err := rt.campaigns.UpdateAgent(r.Context(), req); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

type multipartFile struct {
	multipart.File
	Filename string
}

// formFile returns the first file found under any of fields
func (rt *Router) formFile(w http.ResponseWriter, r *http.Request, fields ...string) (*multipartFile, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart form", Kind: string(sparkai.KindValidation)})
		return nil, false
	}
	for _, field := range fields {
		f, hdr, err := r.FormFile(field)
		if err == nil {
			return &multipartFile{File: f, Filename: hdr.Filename}, true
		}
	}
	rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: "Missing file field " + strings.Join(fields, " or "),
		Kind:  string(sparkai.KindValidation),
	})
	return nil, false
}

func (rt *Router) handleUploadKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	f, ok := rt.formFile(w, r, "file", "pdf")
	if !ok {
		return
	}
	defer f.Close()

	file, err := rt.campaigns.UploadKnowledgeBase(r.Context(), f.Filename, f)
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"file": file,
		"view": rt.campaigns.Snapshot(),
	})
}

func (rt *Router) handleDeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := rt.campaigns.DeleteKnowledgeBaseFile(r.Context(), fileID); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func (rt *Router) handleUploadLeads(w http.ResponseWriter, r *http.Request) {
	f, ok := rt.formFile(w, r, "file", "csv")
	if !ok {
		return
	}
	defer f.Close()

	res, err := rt.campaigns.UploadLeads(r.Context(), f.Filename, f)
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, map[string]interface{}{
		"result": res,
		"view":   rt.campaigns.Snapshot(),
	})
}

func (rt *Router) handleSaveLeads(w http.ResponseWriter, r *http.Request) {
	if err := rt.campaigns.SaveLeads(r.Context()); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func leadIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func (rt *Router) handleEditLead(w http.ResponseWriter, r *http.Request) {
	index, err := leadIndex(r)
	if err != nil {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid lead index", Kind: string(sparkai.KindValidation)})
		return
	}
	var lead sparkai.Lead
	if !rt.decode(w, r, &lead) {
		return
	}
	if err := rt.campaigns.EditLead(r.Context(), index, lead); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func (rt *Router) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	index, err := leadIndex(r)
	if err != nil {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid lead index", Kind: string(sparkai.KindValidation)})
		return
	}

	err = rt.campaigns.DeleteLead(r.Context(), index)
	switch {
	case errors.Is(err, campaign.ErrLeadsOutOfSync):
		rt.respondJSON(w, http.StatusOK, map[string]interface{}{
			"view":    rt.campaigns.Snapshot(),
			"warning": "Lead removed here but the save failed. Refresh to see the saved list.",
		})
	case err != nil:
		rt.respondErr(w, err)
	default:
		rt.respondJSON(w, http.StatusOK, map[string]interface{}{"view": rt.campaigns.Snapshot()})
	}
}

// CountryCodeRequest represents a bulk country code change
type CountryCodeRequest struct {
	CountryCode string `json:"countryCode"`
}

func (rt *Router) handleApplyCountryCode(w http.ResponseWriter, r *http.Request) {
	var req CountryCodeRequest
	if !rt.decode(w, r, &req) {
		return
	}
	changed, err := rt.campaigns.ApplyCountryCode(req.CountryCode)
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, map[string]interface{}{
		"changed": changed,
		"view":    rt.campaigns.Snapshot(),
	})
}

func (rt *Router) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	rt.campaigns.ClosePreview()
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

// TestCallRequest represents a single test call
type TestCallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName"`
}

func (rt *Router) handleTestCall(w http.ResponseWriter, r *http.Request) {
	var req TestCallRequest
	if !rt.decode(w, r, &req) {
		return
	}
	res, err := rt.campaigns.TestCall(r.Context(), req.PhoneNumber, req.FirstName)
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.sessions.RefreshUser(r.Context())
	rt.respondJSON(w, http.StatusOK, res)
}

// TransitionRequest carries the user's answer to the confirmation prompt
type TransitionRequest struct {
	Confirm bool `json:"confirm"`
}

func (rt *Router) handleTransition(w http.ResponseWriter, r *http.Request) {
	action, err := campaign.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		rt.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	var req TransitionRequest
	if r.ContentLength != 0 && !rt.decode(w, r, &req) {
		return
	}

	var prompt string
	confirm := campaign.ConfirmFunc(func(ctx context.Context, p string) bool {
		prompt = p
		return req.Confirm
	})

	err = rt.campaigns.Transition(r.Context(), action, confirm)
	if errors.Is(err, campaign.ErrNotConfirmed) {
		rt.respondJSON(w, http.StatusPreconditionRequired, ErrorResponse{
			Error:  "Confirmation required",
			Kind:   kindConfirmationRequired,
			Prompt: prompt,
		})
		return
	}
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, rt.campaigns.Snapshot())
}

func (rt *Router) currentID(w http.ResponseWriter) (string, bool) {
	cur := rt.campaigns.Current()
	if cur == nil || cur.ID == "" {
		rt.respondErr(w, campaign.ErrNotPersisted)
		return "", false
	}
	return cur.ID, true
}

func (rt *Router) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := rt.currentID(w)
	if !ok {
		return
	}
	snap, found := rt.polls.Get(campaignID)
	if !found {
		rt.respondError(w, http.StatusNotFound, "Status panel not open")
		return
	}
	rt.respondJSON(w, http.StatusOK, snap)
}

func (rt *Router) handleWatchStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := rt.currentID(w)
	if !ok {
		return
	}
	h := rt.polls.Watch(rt.ctx, campaignID)
	rt.respondJSON(w, http.StatusAccepted, h.Snapshot())
}

func (rt *Router) handleCloseStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := rt.currentID(w)
	if !ok {
		return
	}
	rt.polls.Close(campaignID)
	rt.respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (rt *Router) handleListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := rt.voices.List(r.Context())
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, voices)
}

func (rt *Router) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	f, ok := rt.formFile(w, r, "audio", "file")
	if !ok {
		return
	}
	defer f.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name: is required", Kind: string(sparkai.KindValidation)})
		return
	}

	voice, err := rt.voices.Clone(r.Context(), sparkai.VoiceCloneParams{
		Name:        name,
		Description: r.FormValue("description"),
		Filename:    f.Filename,
		Sample:      f,
	})
	if err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusCreated, voice)
}
