package campaign

import (
	"fmt"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// ControlState is the client-observed control status of a campaign
type ControlState string

const (
	ControlStopped   ControlState = "stopped"
	ControlRunning   ControlState = "running"
	ControlPaused    ControlState = "paused"
	ControlCompleted ControlState = "completed"
)

// ControlOf folds a lifecycle status into its control state. Drafts and
// initiated campaigns have not started dialing, so they count as stopped.
func ControlOf(s sparkai.CampaignStatus) ControlState {
	switch s {
	case sparkai.CampaignStatusRunning:
		return ControlRunning
	case sparkai.CampaignStatusPaused:
		return ControlPaused
	case sparkai.CampaignStatusCompleted:
		return ControlCompleted
	default:
		return ControlStopped
	}
}

// statusOf treats a missing status as draft
func statusOf(c *sparkai.Campaign) sparkai.CampaignStatus {
	if c == nil || c.Status == "" {
		return sparkai.CampaignStatusDraft
	}
	return c.Status
}

// Action is a user-initiated control transition
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStart, ActionPause, ActionResume, ActionStop:
		return a, nil
	default:
		return "", fmt.Errorf("unknown campaign action %q", s)
	}
}

// Allowed reports whether the action may fire from status s
func (a Action) Allowed(s sparkai.CampaignStatus) bool {
	switch a {
	case ActionStart:
		return s == sparkai.CampaignStatusDraft ||
			s == sparkai.CampaignStatusInitiated ||
			s == sparkai.CampaignStatusStopped
	case ActionPause:
		return s == sparkai.CampaignStatusRunning
	case ActionResume:
		return s == sparkai.CampaignStatusPaused
	case ActionStop:
		return s == sparkai.CampaignStatusRunning || s == sparkai.CampaignStatusPaused
	default:
		return false
	}
}

// Target is the status the campaign holds once the backend acknowledges
func (a Action) Target() sparkai.CampaignStatus {
	switch a {
	case ActionStart, ActionResume:
		return sparkai.CampaignStatusRunning
	case ActionPause:
		return sparkai.CampaignStatusPaused
	default:
		return sparkai.CampaignStatusStopped
	}
}

// Prompt is the confirmation question shown before the action fires
func (a Action) Prompt(name string) string {
	switch a {
	case ActionStart:
		return fmt.Sprintf("Start campaign %q? Calls will begin immediately.", name)
	case ActionPause:
		return fmt.Sprintf("Pause campaign %q?", name)
	case ActionResume:
		return fmt.Sprintf("Resume campaign %q?", name)
	default:
		return fmt.Sprintf("Stop campaign %q? Remaining leads will not be called.", name)
	}
}

// AvailableActions lists the actions offered for status s
func AvailableActions(s sparkai.CampaignStatus) []Action {
	var out []Action
	for _, a := range []Action{ActionStart, ActionPause, ActionResume, ActionStop} {
		if a.Allowed(s) {
			out = append(out, a)
		}
	}
	return out
}
