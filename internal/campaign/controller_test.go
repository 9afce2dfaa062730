package campaign

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

type fakeAPI struct {
	mu sync.Mutex

	campaigns  []sparkai.Campaign
	details    map[string]*sparkai.Campaign
	created    *sparkai.Campaign
	createArgs []sparkai.CampaignCreateParams
	agentArgs  []sparkai.AgentUpdateParams
	leadsSaves [][]sparkai.Lead
	kbDeleted  []string
	actions    []string

	err      error
	leadsErr error
	// gate, when set, blocks the named action until the channel is closed
	gate map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{details: map[string]*sparkai.Campaign{}, gate: map[string]chan struct{}{}}
}

func (f *fakeAPI) record(action string) error {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	gate := f.gate[action]
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

func (f *fakeAPI) List(ctx context.Context) ([]sparkai.Campaign, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.campaigns, nil
}

func (f *fakeAPI) Details(ctx context.Context, id string) (*sparkai.Campaign, error) {
	if err := f.record("details:" + id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.details[id]
	if !ok {
		return nil, &sparkai.NotFoundError{APIError: sparkai.APIError{StatusCode: 404, Message: "Campaign not found"}}
	}
	return cloneCampaign(c), nil
}

func (f *fakeAPI) Create(ctx context.Context, p sparkai.CampaignCreateParams) (*sparkai.Campaign, error) {
	f.mu.Lock()
	f.createArgs = append(f.createArgs, p)
	f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return nil, err
	}
	if f.created != nil {
		return cloneCampaign(f.created), nil
	}
	return &sparkai.Campaign{ID: "new-1", Name: p.Name, Status: sparkai.CampaignStatusDraft,
		FirstPrompt: p.FirstPrompt, AIConfig: p.AIConfig, SelectedVoiceID: p.SelectedVoiceID}, nil
}

func (f *fakeAPI) UpdateAgent(ctx context.Context, id string, p sparkai.AgentUpdateParams) (*sparkai.Campaign, error) {
	f.mu.Lock()
	f.agentArgs = append(f.agentArgs, p)
	f.mu.Unlock()
	if err := f.record("agent"); err != nil {
		return nil, err
	}
	return &sparkai.Campaign{ID: id}, nil
}

func (f *fakeAPI) UpdateLeads(ctx context.Context, id string, leads []sparkai.Lead) error {
	f.mu.Lock()
	f.leadsSaves = append(f.leadsSaves, cloneLeads(leads))
	leadsErr := f.leadsErr
	f.mu.Unlock()
	if err := f.record("leads"); err != nil {
		return err
	}
	return leadsErr
}

func (f *fakeAPI) DeleteKnowledgeBaseFile(ctx context.Context, id, fileID string) error {
	f.mu.Lock()
	f.kbDeleted = append(f.kbDeleted, fileID)
	f.mu.Unlock()
	return f.record("kb-delete")
}

func (f *fakeAPI) Launch(ctx context.Context, id string) error { return f.record("start") }
func (f *fakeAPI) Pause(ctx context.Context, id string) error  { return f.record("pause") }
func (f *fakeAPI) Resume(ctx context.Context, id string) error { return f.record("resume") }
func (f *fakeAPI) Stop(ctx context.Context, id string) error   { return f.record("stop") }

func (f *fakeAPI) TestCall(ctx context.Context, p sparkai.TestCallParams) (*sparkai.TestCallResult, error) {
	if err := f.record("test-call"); err != nil {
		return nil, err
	}
	return &sparkai.TestCallResult{Status: "queued"}, nil
}

type fakeUploads struct {
	mu       sync.Mutex
	kb       []string
	kbErr    error
	leads    []sparkai.Lead
	count    int
	gate     chan struct{}
	gateNext bool
}

func (f *fakeUploads) KnowledgeBase(ctx context.Context, id, filename string, r io.Reader) (*sparkai.KnowledgeBaseUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kbErr != nil {
		return nil, f.kbErr
	}
	f.kb = append(f.kb, id+"/"+filename)
	return &sparkai.KnowledgeBaseUpload{ID: "kb-" + filename, Filename: filename}, nil
}

func (f *fakeUploads) Leads(ctx context.Context, id, filename string, r io.Reader) (*sparkai.LeadsUpload, error) {
	f.mu.Lock()
	gate := f.gate
	if f.gateNext {
		f.gateNext = false
	} else {
		gate = nil
	}
	leads := cloneLeads(f.leads)
	count := f.count
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if strings.Contains(filename, "second") {
		leads = leads[:1]
		count = 1
	}
	return &sparkai.LeadsUpload{Leads: leads, LeadsCount: count}, nil
}

type wallet float64

func (w wallet) Credits() float64 { return float64(w) }

type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (r *recordingConfirmer) Confirm(ctx context.Context, prompt string) bool {
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

func readyCampaign(status sparkai.CampaignStatus) *sparkai.Campaign {
	return &sparkai.Campaign{
		ID:              "c1",
		Name:            "Spring Outreach",
		Status:          status,
		AIConfig:        sparkai.AIConfig{InitialMessage: "Hello {{firstName}}"},
		SelectedVoiceID: "v1",
		KnowledgeBase:   []sparkai.KnowledgeBaseDocument{{ID: "kb1", Filename: "faq.pdf"}},
		Leads:           []sparkai.Lead{{FirstName: "Ada", ContactNo: "+15550001"}},
	}
}

func setup(t *testing.T, camp *sparkai.Campaign, credits float64) (*Controller, *fakeAPI, *fakeUploads) {
	t.Helper()
	api := newFakeAPI()
	uploads := &fakeUploads{}
	ctrl := NewController(api, uploads, wallet(credits), zerolog.Nop())
	if camp != nil {
		api.details[camp.ID] = camp
		_, err := ctrl.Load(context.Background(), camp.ID)
		require.NoError(t, err)
	}
	return ctrl, api, uploads
}

func TestTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("start updates status only after backend success", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		confirm := &recordingConfirmer{answer: true}

		require.NoError(t, ctrl.Start(ctx, confirm))
		assert.Equal(t, sparkai.CampaignStatusRunning, ctrl.Current().Status)
		assert.Contains(t, api.calls(), "start")
		require.Len(t, confirm.prompts, 1)
		assert.Contains(t, confirm.prompts[0], "Spring Outreach")
	})

	t.Run("failed action leaves status untouched", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusRunning), 10)
		api.err = &sparkai.APIError{StatusCode: 500, Message: "boom"}

		err := ctrl.Pause(ctx, Confirmed)
		require.Error(t, err)
		assert.Equal(t, sparkai.KindBackend, sparkai.KindOf(err))
		assert.Equal(t, sparkai.CampaignStatusRunning, ctrl.Current().Status)
	})

	t.Run("declined confirmation makes no network call", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusRunning), 10)
		before := len(api.calls())

		err := ctrl.Stop(ctx, &recordingConfirmer{answer: false})
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.Len(t, api.calls(), before)
		assert.Equal(t, sparkai.CampaignStatusRunning, ctrl.Current().Status)
	})

	t.Run("guards reject disallowed transitions", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusPaused), 10)
		before := len(api.calls())

		err := ctrl.Pause(ctx, Confirmed)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, sparkai.CampaignStatusPaused, te.From)
		assert.Len(t, api.calls(), before)

		require.NoError(t, ctrl.Resume(ctx, Confirmed))
		assert.Equal(t, sparkai.CampaignStatusRunning, ctrl.Current().Status)
		require.NoError(t, ctrl.Stop(ctx, Confirmed))
		assert.Equal(t, sparkai.CampaignStatusStopped, ctrl.Current().Status)
	})

	t.Run("start requires launch readiness", func(t *testing.T) {
		camp := readyCampaign(sparkai.CampaignStatusDraft)
		camp.Leads = nil
		ctrl, _, _ := setup(t, camp, 10)

		err := ctrl.Start(ctx, Confirmed)
		var nr *NotReadyError
		require.ErrorAs(t, err, &nr)
		assert.Equal(t, []Requirement{RequirementLeads}, nr.Missing)
		assert.Equal(t, sparkai.KindValidation, sparkai.KindOf(err))
	})

	t.Run("start with no credits fails fast", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 0)
		confirm := &recordingConfirmer{answer: true}

		err := ctrl.Start(ctx, confirm)
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		assert.Equal(t, sparkai.KindInsufficientCredits, sparkai.KindOf(err))
		assert.Empty(t, confirm.prompts)
		assert.NotContains(t, api.calls(), "start")
	})

	t.Run("backend quota rejection maps to insufficient credits", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		api.err = &sparkai.InsufficientCreditsError{APIError: sparkai.APIError{
			StatusCode: 400, Message: "Insufficient credits for this call"}}

		err := ctrl.Start(ctx, Confirmed)
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		assert.True(t, sparkai.IsInsufficientCreditsError(err))
		assert.Equal(t, sparkai.KindInsufficientCredits, sparkai.KindOf(err))
		assert.Equal(t, sparkai.CampaignStatusDraft, ctrl.Current().Status)
	})

	t.Run("transition hook fires after success", func(t *testing.T) {
		ctrl, _, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		var got []Action
		ctrl.OnTransition(func(id string, a Action) {
			assert.Equal(t, "c1", id)
			got = append(got, a)
		})

		require.NoError(t, ctrl.Start(ctx, Confirmed))
		assert.Equal(t, []Action{ActionStart}, got)
	})

	t.Run("transition hook skipped when another campaign was opened", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		api.details["c2"] = &sparkai.Campaign{ID: "c2", Name: "Other", Status: sparkai.CampaignStatusDraft}
		gate := make(chan struct{})
		api.mu.Lock()
		api.gate["start"] = gate
		api.mu.Unlock()

		var fired atomic.Int32
		ctrl.OnTransition(func(string, Action) { fired.Add(1) })

		done := make(chan error, 1)
		go func() { done <- ctrl.Start(ctx, Confirmed) }()
		require.Eventually(t, func() bool {
			for _, c := range api.calls() {
				if c == "start" {
					return true
				}
			}
			return false
		}, timeout, tick)

		_, err := ctrl.Load(ctx, "c2")
		require.NoError(t, err)
		close(gate)

		require.NoError(t, <-done)
		assert.Zero(t, fired.Load())
		assert.Equal(t, "c2", ctrl.Current().ID)
		assert.Equal(t, sparkai.CampaignStatusDraft, ctrl.Current().Status)
	})

	t.Run("unsaved draft cannot transition", func(t *testing.T) {
		ctrl, _, _ := setup(t, nil, 10)
		ctrl.NewDraft("Draft")
		assert.ErrorIs(t, ctrl.Start(ctx, Confirmed), ErrNotPersisted)
	})
}

func TestLastIssuedWins(t *testing.T) {
	ctx := context.Background()
	ctrl, _, uploads := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
	uploads.leads = []sparkai.Lead{
		{FirstName: "Ada", ContactNo: "+1"},
		{FirstName: "Bo", ContactNo: "+2"},
	}
	uploads.count = 2
	uploads.gate = make(chan struct{})
	uploads.gateNext = true

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.UploadLeads(ctx, "first.csv", strings.NewReader("x"))
		firstDone <- err
	}()

	// wait until the first upload is parked on the gate
	require.Eventually(t, func() bool {
		uploads.mu.Lock()
		defer uploads.mu.Unlock()
		return !uploads.gateNext
	}, timeout, tick)

	res, err := ctrl.UploadLeads(ctx, "second.csv", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	close(uploads.gate)
	require.NoError(t, <-firstDone)

	view := ctrl.Snapshot()
	assert.Len(t, view.Leads, 1, "older response must not overwrite the newer one")
	assert.Equal(t, "second.csv", view.LeadsFile)
}

func TestLoadDiscardsSupersededResponse(t *testing.T) {
	ctx := context.Background()
	ctrl, api, _ := setup(t, nil, 10)
	api.details["a"] = &sparkai.Campaign{ID: "a", Name: "A"}
	api.details["b"] = &sparkai.Campaign{ID: "b", Name: "B"}
	gate := make(chan struct{})
	api.gate["details:a"] = gate

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Load(ctx, "a")
		done <- err
	}()
	require.Eventually(t, func() bool {
		for _, c := range api.calls() {
			if c == "details:a" {
				return true
			}
		}
		return false
	}, timeout, tick)

	_, err := ctrl.Load(ctx, "b")
	require.NoError(t, err)
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "b", ctrl.Current().ID)
}

func TestDraftLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("new draft lists exactly the three missing requirements", func(t *testing.T) {
		ctrl, _, _ := setup(t, nil, 10)
		ctrl.NewDraft("Q3")

		r := ctrl.Readiness()
		assert.True(t, r.HasInitialMessage)
		assert.False(t, r.CanTestCall)
		assert.Equal(t, []Requirement{RequirementVoice, RequirementKnowledgeBase, RequirementLeads}, r.Missing)
		assert.True(t, r.CanEdit)
	})

	t.Run("create rejects duplicate names before any network call", func(t *testing.T) {
		ctrl, api, _ := setup(t, nil, 10)
		api.campaigns = []sparkai.Campaign{{ID: "x", Name: "Q3 Push"}}
		_, err := ctrl.List(ctx)
		require.NoError(t, err)

		ctrl.NewDraft("  q3 push ")
		_, err = ctrl.Create(ctx)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "name", ve.Field)
		assert.Empty(t, api.createArgs)
	})

	t.Run("create uploads staged knowledge base files", func(t *testing.T) {
		ctrl, api, uploads := setup(t, nil, 10)
		ctrl.NewDraft("Fresh")
		_, err := ctrl.SelectVoice(ctx, "v9")
		require.NoError(t, err)
		staged, err := ctrl.UploadKnowledgeBase(ctx, "guide.pdf", strings.NewReader("%PDF"))
		require.NoError(t, err)
		assert.True(t, staged.Staged)
		assert.Empty(t, staged.BackendID)
		assert.True(t, ctrl.Readiness().HasKnowledgeBase)

		created, err := ctrl.Create(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new-1", created.ID)
		require.Len(t, api.createArgs, 1)
		assert.Equal(t, "v9", api.createArgs[0].SelectedVoiceID)
		assert.Equal(t, DefaultInitialMessage, api.createArgs[0].AIConfig.InitialMessage)
		assert.Equal(t, []string{"new-1/guide.pdf"}, uploads.kb)

		view := ctrl.Snapshot()
		require.Len(t, view.KnowledgeBaseFiles, 1)
		assert.False(t, view.KnowledgeBaseFiles[0].Staged)
		assert.Equal(t, "kb-guide.pdf", view.KnowledgeBaseFiles[0].BackendID)
		assert.Len(t, view.Campaign.KnowledgeBase, 1)
	})

	t.Run("create requires a name", func(t *testing.T) {
		ctrl, _, _ := setup(t, nil, 10)
		ctrl.NewDraft(" ")
		_, err := ctrl.Create(ctx)
		assert.Equal(t, sparkai.KindValidation, sparkai.KindOf(err))
	})

	t.Run("empty initial message is rejected", func(t *testing.T) {
		ctrl, _, _ := setup(t, nil, 10)
		ctrl.NewDraft("A")
		blank := "   "
		_, err := ctrl.UpdateAgent(ctx, AgentUpdate{InitialMessage: &blank})
		assert.Equal(t, sparkai.KindValidation, sparkai.KindOf(err))
	})
}

func TestEditing(t *testing.T) {
	ctx := context.Background()

	t.Run("non-draft campaign is not editable", func(t *testing.T) {
		camp := readyCampaign(sparkai.NormalizeStatus("active"))
		camp.CompletedCalls = 5
		ctrl, api, _ := setup(t, camp, 10)

		r := ctrl.Readiness()
		assert.False(t, r.CanEdit)
		assert.Equal(t, "only draft campaigns can be edited", r.EditBlockReason)

		msg := "new"
		_, err := ctrl.UpdateAgent(ctx, AgentUpdate{InitialMessage: &msg})
		var ne *NotEditableError
		require.ErrorAs(t, err, &ne)
		assert.Empty(t, api.agentArgs)
	})

	t.Run("agent update applies after backend success", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		persona := "Friendly"
		_, err := ctrl.UpdateAgent(ctx, AgentUpdate{SystemPersona: &persona})
		require.NoError(t, err)
		require.Len(t, api.agentArgs, 1)
		assert.Equal(t, "Friendly", *api.agentArgs[0].SystemPersona)
		assert.Equal(t, "Friendly", ctrl.Current().SystemPersona)
	})

	t.Run("delete unsaved knowledge base file is local only", func(t *testing.T) {
		ctrl, api, _ := setup(t, nil, 10)
		ctrl.NewDraft("A")
		f, err := ctrl.UploadKnowledgeBase(ctx, "a.pdf", strings.NewReader("%PDF"))
		require.NoError(t, err)

		require.NoError(t, ctrl.DeleteKnowledgeBaseFile(ctx, f.LocalID))
		assert.Empty(t, ctrl.Snapshot().KnowledgeBaseFiles)
		assert.Empty(t, api.kbDeleted)
	})

	t.Run("delete saved knowledge base file waits for backend", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		api.err = errors.New("offline")

		require.Error(t, ctrl.DeleteKnowledgeBaseFile(ctx, "kb1"))
		assert.Len(t, ctrl.Snapshot().KnowledgeBaseFiles, 1)

		api.err = nil
		require.NoError(t, ctrl.DeleteKnowledgeBaseFile(ctx, "kb1"))
		view := ctrl.Snapshot()
		assert.Empty(t, view.KnowledgeBaseFiles)
		assert.Empty(t, view.Campaign.KnowledgeBase)
		assert.Equal(t, []string{"kb1", "kb1"}, api.kbDeleted)
	})

	t.Run("rejects non-pdf knowledge base", func(t *testing.T) {
		ctrl, _, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		_, err := ctrl.UploadKnowledgeBase(ctx, "notes.txt", strings.NewReader("x"))
		assert.Equal(t, sparkai.KindValidation, sparkai.KindOf(err))
	})
}

func TestLeads(t *testing.T) {
	ctx := context.Background()

	t.Run("upload count matches server count and opens preview", func(t *testing.T) {
		ctrl, _, uploads := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		uploads.leads = []sparkai.Lead{
			{FirstName: "Ada", ContactNo: "+1"},
			{FirstName: "Bo", ContactNo: "0207"},
			{FirstName: "Cy", ContactNo: "+3"},
		}
		uploads.count = 3

		res, err := ctrl.UploadLeads(ctx, "leads.csv", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, res.ServerCount, len(ctrl.Snapshot().Leads))
		assert.True(t, res.Preview)
		assert.Equal(t, []LeadWarning{{Index: 1, Message: WarningMissingCountryCode}}, res.Warnings)
		assert.Equal(t, 3, ctrl.Current().TotalLeads)
	})

	t.Run("edit rolls back when save fails", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		api.leadsErr = errors.New("offline")

		err := ctrl.EditLead(ctx, 0, sparkai.Lead{FirstName: "Eve", ContactNo: "+9"})
		require.Error(t, err)
		assert.Equal(t, "Ada", ctrl.Snapshot().Leads[0].FirstName)
	})

	t.Run("edit sends the whole array", func(t *testing.T) {
		camp := readyCampaign(sparkai.CampaignStatusDraft)
		camp.Leads = append(camp.Leads, sparkai.Lead{FirstName: "Bo", ContactNo: "+2"})
		ctrl, api, _ := setup(t, camp, 10)

		require.NoError(t, ctrl.EditLead(ctx, 1, sparkai.Lead{FirstName: "Bob", ContactNo: "+2"}))
		require.Len(t, api.leadsSaves, 1)
		assert.Len(t, api.leadsSaves[0], 2)
		assert.Equal(t, "Bob", api.leadsSaves[0][1].FirstName)
	})

	t.Run("delete keeps local removal when save fails", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		api.leadsErr = errors.New("offline")

		err := ctrl.DeleteLead(ctx, 0)
		assert.ErrorIs(t, err, ErrLeadsOutOfSync)
		assert.Empty(t, ctrl.Snapshot().Leads)
	})

	t.Run("edit validates lead and index", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		assert.Error(t, ctrl.EditLead(ctx, 0, sparkai.Lead{ContactNo: "+1"}))
		assert.Error(t, ctrl.EditLead(ctx, 7, sparkai.Lead{FirstName: "A", ContactNo: "+1"}))
		assert.Empty(t, api.leadsSaves)
	})

	t.Run("country code is local until save", func(t *testing.T) {
		camp := readyCampaign(sparkai.CampaignStatusDraft)
		camp.Leads = []sparkai.Lead{{FirstName: "A", ContactNo: "07700 900123"}}
		ctrl, api, _ := setup(t, camp, 10)

		n, err := ctrl.ApplyCountryCode("44")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "+447700 900123", ctrl.Snapshot().Leads[0].ContactNo)
		assert.Empty(t, api.leadsSaves)

		require.NoError(t, ctrl.SaveLeads(ctx))
		assert.Len(t, api.leadsSaves, 1)
	})
}

func TestTestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects malformed phone before network", func(t *testing.T) {
		ctrl, api, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 10)
		_, err := ctrl.TestCall(ctx, "abc", "Ada")
		assert.Equal(t, sparkai.KindValidation, sparkai.KindOf(err))
		assert.NotContains(t, api.calls(), "test-call")
	})

	t.Run("does not need leads", func(t *testing.T) {
		camp := readyCampaign(sparkai.CampaignStatusDraft)
		camp.Leads = nil
		ctrl, _, _ := setup(t, camp, 10)
		res, err := ctrl.TestCall(ctx, "+15550001", "Ada")
		require.NoError(t, err)
		assert.Equal(t, "queued", res.Status)
	})

	t.Run("blocked at zero credits", func(t *testing.T) {
		ctrl, _, _ := setup(t, readyCampaign(sparkai.CampaignStatusDraft), 0)
		_, err := ctrl.TestCall(ctx, "+15550001", "Ada")
		assert.ErrorIs(t, err, ErrInsufficientCredits)
	})
}

func TestApplyStatusReport(t *testing.T) {
	ctrl, _, _ := setup(t, readyCampaign(sparkai.CampaignStatusRunning), 10)

	ctrl.ApplyStatusReport("other", &sparkai.StatusReport{Status: sparkai.CampaignStatusCompleted})
	assert.Equal(t, sparkai.CampaignStatusRunning, ctrl.Current().Status)

	ctrl.ApplyStatusReport("c1", &sparkai.StatusReport{Status: sparkai.CampaignStatusCompleted, CompletedCalls: 4})
	cur := ctrl.Current()
	assert.Equal(t, sparkai.CampaignStatusCompleted, cur.Status)
	assert.Equal(t, 4, cur.CompletedCalls)
	assert.Empty(t, ctrl.Snapshot().Actions)
}
