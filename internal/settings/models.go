// Package settings holds the locally persisted client preferences: the auth
// token, author display name, theme and playbook checklist state.
package settings

import (
	"fmt"
	"maps"
	"strings"
)

// Theme is the display theme preference.
type Theme string

// Theme values.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates a theme name. Empty input yields ThemeSystem.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ThemeSystem, nil
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light, dark or system)", s)
	}
}

// Settings is the full local preferences document.
type Settings struct {
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Author   string `yaml:"author,omitempty"`
	Theme    Theme  `yaml:"theme,omitempty"`

	// Checklists maps ChecklistKey(issue, playbook) to checked step indices.
	Checklists map[string]map[int]bool `yaml:"checklists,omitempty"`
}

// ChecklistKey is the storage key for one issue's progress through a playbook.
func ChecklistKey(issueID, playbookID string) string {
	return "tracker_playbook_" + issueID + "_" + playbookID
}

// EffectiveTheme returns the theme, defaulting to ThemeSystem.
func (s Settings) EffectiveTheme() Theme {
	if s.Theme == "" {
		return ThemeSystem
	}
	return s.Theme
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.Checklists != nil {
		out.Checklists = make(map[string]map[int]bool, len(s.Checklists))
		for k, v := range s.Checklists {
			out.Checklists[k] = maps.Clone(v)
		}
	}
	return out
}
