package session

import "github.com/bvrai/campaign-console/pkg/sparkai"

// Status is the believed authentication status
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is an immutable snapshot of the session. User is shared between
// snapshots and must not be modified; the reducer copies it on change.
type State struct {
	Status Status        `json:"status"`
	Token  string        `json:"-"`
	User   *sparkai.User `json:"user,omitempty"`
	Demo   bool          `json:"demo"`
	// Verified is set once the backend has confirmed the session in this run.
	Verified bool `json:"verified"`
}

// Authenticated reports whether protected views may render
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Credits returns the user's credit balance, or 0 without a user
func (s State) Credits() float64 {
	if s.User == nil {
		return 0
	}
	return s.User.CreditsBalance
}

// Event is a session transition fed to Reduce
type Event interface {
	isEvent()
}

// Restored installs the locally cached session
type Restored struct {
	Token string
	User  *sparkai.User
	Demo  bool
}

// Confirmed is a backend confirmation, optionally carrying a fresh profile
type Confirmed struct {
	User *sparkai.User
}

// Denied is an explicit backend "not authenticated"
type Denied struct {
	HadCache bool
}

// Unreachable means the status check failed or timed out
type Unreachable struct {
	HadCache bool
}

// LoggedIn installs a new session
type LoggedIn struct {
	Token string
	User  *sparkai.User
	Demo  bool
}

// LoggedOut clears the session
type LoggedOut struct{}

// UserRefreshed replaces the profile of an authenticated session
type UserRefreshed struct {
	User *sparkai.User
}

// CreditsUpdated replaces only the credit balance
type CreditsUpdated struct {
	Balance float64
}

func (Restored) isEvent()       {}
func (Confirmed) isEvent()      {}
func (Denied) isEvent()         {}
func (Unreachable) isEvent()    {}
func (LoggedIn) isEvent()       {}
func (LoggedOut) isEvent()      {}
func (UserRefreshed) isEvent()  {}
func (CreditsUpdated) isEvent() {}

// Reduce is the only place session state changes
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case Restored:
		return State{Status: StatusAuthenticated, Token: ev.Token, User: ev.User, Demo: ev.Demo}

	case LoggedIn:
		return State{Status: StatusAuthenticated, Token: ev.Token, User: ev.User, Demo: ev.Demo, Verified: !ev.Demo}

	case Confirmed:
		if ev.User != nil {
			s.User = ev.User
		}
		if s.User == nil {
			return State{Status: StatusUnauthenticated}
		}
		s.Status = StatusAuthenticated
		s.Verified = true
		return s

	case Denied:
		// A cached session outlives a denial; only a cold start is logged out.
		if ev.HadCache {
			return s
		}
		return State{Status: StatusUnauthenticated}

	case Unreachable:
		if ev.HadCache {
			return s
		}
		return State{Status: StatusUnauthenticated}

	case LoggedOut:
		return State{Status: StatusUnauthenticated}

	case UserRefreshed:
		if !s.Authenticated() || ev.User == nil {
			return s
		}
		s.User = ev.User
		return s

	case CreditsUpdated:
		if !s.Authenticated() || s.User == nil {
			return s
		}
		u := *s.User
		u.CreditsBalance = ev.Balance
		s.User = &u
		return s

	default:
		return s
	}
}
