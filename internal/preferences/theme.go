// Package preferences holds UI preferences persisted next to the session.
package preferences

import (
	"fmt"
	"strings"

	"github.com/bvrai/campaign-console/internal/store"
)

// Theme is the dashboard color scheme
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates a theme name
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// LoadTheme reads the saved theme. Installs that only carry the legacy key
// are still honored; unknown values fall back to system.
func LoadTheme(s store.Store) Theme {
	for _, key := range []string{store.KeyTheme, store.KeyLegacyTheme} {
		if raw, ok := s.Get(key); ok {
			if t, err := ParseTheme(raw); err == nil {
				return t
			}
		}
	}
	return ThemeSystem
}

// SaveTheme writes the theme under both the current and the legacy key
func SaveTheme(s store.Store, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := s.Set(store.KeyTheme, string(t)); err != nil {
		return err
	}
	return s.Set(store.KeyLegacyTheme, string(t))
}
