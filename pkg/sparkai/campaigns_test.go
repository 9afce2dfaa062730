package sparkai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]CampaignStatus{
		"active":      CampaignStatusRunning,
		"Running":     CampaignStatusRunning,
		"in-progress": CampaignStatusRunning,
		"calling":     CampaignStatusRunning,
		"ringing":     CampaignStatusRunning,
		"paused":      CampaignStatusPaused,
		"stopped":     CampaignStatusStopped,
		"cancelled":   CampaignStatusStopped,
		"completed":   CampaignStatusCompleted,
		"draft":       CampaignStatusDraft,
		"":            CampaignStatusDraft,
		"initiated":   CampaignStatusInitiated,
		"exploded":    CampaignStatusUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw=%q", raw)
	}
}

func TestCampaignDecoding(t *testing.T) {
	t.Run("normalizes status and mongo id", func(t *testing.T) {
		var c Campaign
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc","name":"Q3","status":"calling"}`), &c))
		assert.Equal(t, "abc", c.ID)
		assert.Equal(t, CampaignStatusRunning, c.Status)
	})

	t.Run("list accepts bare array", func(t *testing.T) {
		var l CampaignList
		require.NoError(t, json.Unmarshal([]byte(`[{"id":"1","name":"a"}]`), &l))
		assert.Len(t, l, 1)
	})

	t.Run("list accepts wrapped object", func(t *testing.T) {
		var l CampaignList
		require.NoError(t, json.Unmarshal([]byte(`{"campaigns":[{"id":"1"},{"id":"2"}]}`), &l))
		assert.Len(t, l, 2)
	})
}

func TestCampaignsService(t *testing.T) {
	t.Run("details unwraps campaign envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/campaigns/c1/details", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"campaign": map[string]interface{}{
					"id":     "c1",
					"name":   "Spring",
					"status": "active",
					"leads":  []map[string]string{{"firstName": "Ada", "contactNo": "+1"}},
				},
			})
		}))
		defer server.Close()

		client, _ := NewClient(WithBaseURL(server.URL))
		c, err := client.Campaigns.Details(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "Spring", c.Name)
		assert.Equal(t, CampaignStatusRunning, c.Status)
		assert.Len(t, c.Leads, 1)
	})

	t.Run("update leads sends the whole array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "PUT", r.Method)
			assert.Equal(t, "/api/campaigns/c1/leads", r.URL.Path)
			var body struct {
				Leads []Lead `json:"leads"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.Leads, 2)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, _ := NewClient(WithBaseURL(server.URL))
		err := client.Campaigns.UpdateLeads(context.Background(), "c1", []Lead{
			{FirstName: "Ada", ContactNo: "+1"},
			{FirstName: "Bo", ContactNo: "+2"},
		})
		require.NoError(t, err)
	})

	t.Run("launch posts campaign id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/campaigns/start-campaign", r.URL.Path)
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "c9", body["campaignId"])
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, _ := NewClient(WithBaseURL(server.URL))
		require.NoError(t, client.Campaigns.Launch(context.Background(), "c9"))
	})

	t.Run("status decodes progress", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":             "in-progress",
				"totalLeads":         10,
				"completedCalls":     4,
				"successfulCalls":    3,
				"pendingCalls":       6,
				"progressPercentage": 40,
			})
		}))
		defer server.Close()

		client, _ := NewClient(WithBaseURL(server.URL))
		st, err := client.Campaigns.Status(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, CampaignStatusRunning, st.Status)
		assert.Equal(t, 4, st.CompletedCalls)
		assert.Equal(t, 40.0, st.ProgressPercentage)
	})
}
