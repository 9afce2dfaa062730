package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func TestEvaluate(t *testing.T) {
	t.Run("nil campaign is not ready", func(t *testing.T) {
		r := Evaluate(nil, Attachments{})
		assert.False(t, r.CanTestCall)
		assert.False(t, r.CanEdit)
	})

	t.Run("initial message falls back to first prompt", func(t *testing.T) {
		r := Evaluate(&sparkai.Campaign{FirstPrompt: "Hi"}, Attachments{})
		assert.True(t, r.HasInitialMessage)

		r = Evaluate(&sparkai.Campaign{AIConfig: sparkai.AIConfig{InitialMessage: "  "}}, Attachments{})
		assert.False(t, r.HasInitialMessage)
	})

	t.Run("local attachments count", func(t *testing.T) {
		c := &sparkai.Campaign{FirstPrompt: "Hi", SelectedVoice: "Aria"}
		r := Evaluate(c, Attachments{KnowledgeBaseFiles: 1, LeadsFile: "leads.csv"})
		assert.True(t, r.CanLaunch)
		assert.Empty(t, r.Missing)

		r = Evaluate(&sparkai.Campaign{FirstPrompt: "Hi", SelectedVoiceID: "v", KnowledgeBaseID: "kb"}, Attachments{})
		assert.True(t, r.CanTestCall)
		assert.False(t, r.CanLaunch)
	})

	t.Run("launch implies test call", func(t *testing.T) {
		bools := []bool{false, true}
		for _, msg := range bools {
			for _, voice := range bools {
				for _, kb := range bools {
					for _, leads := range bools {
						c := &sparkai.Campaign{}
						if msg {
							c.FirstPrompt = "Hi"
						}
						if voice {
							c.SelectedVoiceID = "v"
						}
						if kb {
							c.KnowledgeBaseID = "kb"
						}
						if leads {
							c.Leads = []sparkai.Lead{{FirstName: "A", ContactNo: "+1"}}
						}
						r := Evaluate(c, Attachments{})
						if r.CanLaunch {
							assert.True(t, r.CanTestCall)
						}
					}
				}
			}
		}
	})

	t.Run("non-draft is never editable", func(t *testing.T) {
		for _, s := range []sparkai.CampaignStatus{
			sparkai.CampaignStatusInitiated,
			sparkai.CampaignStatusRunning,
			sparkai.CampaignStatusPaused,
			sparkai.CampaignStatusStopped,
			sparkai.CampaignStatusCompleted,
			sparkai.CampaignStatusUnknown,
		} {
			for _, calls := range []int{0, 3} {
				r := Evaluate(&sparkai.Campaign{Status: s, CompletedCalls: calls}, Attachments{})
				assert.False(t, r.CanEdit, "status=%s calls=%d", s, calls)
				assert.Equal(t, ReasonNotDraft, r.EditBlockReason)
			}
		}
	})

	t.Run("draft with calls is not editable", func(t *testing.T) {
		r := Evaluate(&sparkai.Campaign{Status: sparkai.CampaignStatusDraft, CompletedCalls: 1}, Attachments{})
		assert.False(t, r.CanEdit)
		assert.Equal(t, ReasonHasCalled, r.EditBlockReason)
	})
}

func TestActions(t *testing.T) {
	assert.Equal(t, []Action{ActionStart}, AvailableActions(sparkai.CampaignStatusDraft))
	assert.Equal(t, []Action{ActionPause, ActionStop}, AvailableActions(sparkai.CampaignStatusRunning))
	assert.Equal(t, []Action{ActionResume, ActionStop}, AvailableActions(sparkai.CampaignStatusPaused))
	assert.Equal(t, []Action{ActionStart}, AvailableActions(sparkai.CampaignStatusStopped))
	assert.Empty(t, AvailableActions(sparkai.CampaignStatusCompleted))

	assert.Equal(t, ControlStopped, ControlOf(sparkai.CampaignStatusDraft))
	assert.Equal(t, ControlRunning, ControlOf(sparkai.NormalizeStatus("ringing")))

	_, err := ParseAction("explode")
	assert.Error(t, err)
	a, err := ParseAction("resume")
	assert.NoError(t, err)
	assert.Equal(t, sparkai.CampaignStatusRunning, a.Target())
}

func TestApplyCountryCode(t *testing.T) {
	leads := []sparkai.Lead{
		{FirstName: "A", ContactNo: "0044123"},
		{FirstName: "B", ContactNo: "+15550001"},
		{FirstName: "C", ContactNo: " 555 "},
		{FirstName: "D", ContactNo: ""},
	}

	once, changed, err := ApplyCountryCode(leads, "+44")
	assert.NoError(t, err)
	assert.Equal(t, 3, changed)
	for _, l := range once {
		assert.True(t, len(l.ContactNo) > 0 && l.ContactNo[0] == '+', l.ContactNo)
	}
	assert.Equal(t, "+4444123", once[0].ContactNo)
	assert.Equal(t, "+15550001", once[1].ContactNo)
	assert.Equal(t, "+44555", once[2].ContactNo)
	assert.Equal(t, "0044123", leads[0].ContactNo, "input must not be modified")

	twice, changed, err := ApplyCountryCode(once, "44")
	assert.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, once, twice)

	_, _, err = ApplyCountryCode(leads, "+12345")
	assert.Error(t, err)
	_, _, err = ApplyCountryCode(leads, "abc")
	assert.Error(t, err)
}

func TestRenderInitialMessage(t *testing.T) {
	assert.Equal(t, "Hi Ada, hello Ada", RenderInitialMessage("Hi {{firstName}}, hello {firstName}", sparkai.Lead{FirstName: "Ada"}))
	assert.Equal(t, "Hi there", RenderInitialMessage("Hi {{ firstName }}", sparkai.Lead{}))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("+1 (555) 000-1234"))
	assert.NoError(t, ValidatePhone("07700900123"))
	assert.Error(t, ValidatePhone(""))
	assert.Error(t, ValidatePhone("12"))
	assert.Error(t, ValidatePhone("call me"))
}
