package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bvrai/campaign-console/internal/poller"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

func TestStdinConfirmer(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"sure":  false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		c := &stdinConfirmer{in: bufio.NewReader(strings.NewReader(input)), out: &out}
		assert.Equal(t, want, c.Confirm(context.Background(), `Start campaign "Promo"?`), "input %q", input)
		assert.Contains(t, out.String(), `Start campaign "Promo"?`)
	}
}

func TestDescribe(t *testing.T) {
	t.Run("insufficient credits", func(t *testing.T) {
		err := describe(&sparkai.InsufficientCreditsError{APIError: sparkai.APIError{StatusCode: 402, Message: "Out of credits"}})
		assert.Contains(t, err.Error(), "upgrade")
		assert.Contains(t, err.Error(), "Out of credits")
	})

	t.Run("unauthorized", func(t *testing.T) {
		err := describe(&sparkai.AuthenticationError{APIError: sparkai.APIError{StatusCode: 401}})
		assert.Contains(t, err.Error(), "console login")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		orig := errors.New("boom")
		assert.Same(t, orig, describe(orig))
	})
}

func TestRenderStatusPanel(t *testing.T) {
	snap := poller.Snapshot{
		CampaignID: "c1",
		Done:       true,
		UpdatedAt:  time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC),
		Report: &sparkai.StatusReport{
			Status:             sparkai.CampaignStatusCompleted,
			TotalLeads:         4,
			CompletedCalls:     4,
			SuccessfulCalls:    3,
			ProgressPercentage: 100,
			CallHistory:        []sparkai.CallRecord{{LeadName: "Ada", Status: "completed"}},
		},
	}

	out := renderStatusPanel("Spring Promo", snap, 12)
	assert.Contains(t, out, "Spring Promo")
	assert.Contains(t, out, "Calls 4/4")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Campaign finished")
	assert.Contains(t, out, "100.0%")
}

func TestProgressBar(t *testing.T) {
	assert.Contains(t, progressBar(-5, 10), "  0.0%")
	assert.Contains(t, progressBar(250, 10), "100.0%")
	assert.Contains(t, progressBar(50, 10), "█████░░░░░")
}
