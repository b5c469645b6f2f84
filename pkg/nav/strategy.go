package nav

import "github.com/ArnovZ080/guildboard/pkg/mode"

// Strategy picks which navigation item IDs to suggest for a mode.
// The default is a static lookup table; real usage-driven
// personalization can be plugged in behind this interface.
type Strategy interface {
	Suggest(m mode.Mode) []string
}

// StaticStrategy is a fixed per-mode suggestion table.
type StaticStrategy map[mode.Mode][]string

func (s StaticStrategy) Suggest(m mode.Mode) []string {
	ids := s[m]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// DefaultItems is the compiled-in navigation registry, used when no
// configuration file is provided.
func DefaultItems() []Item {
	return []Item{
		{ID: "dashboard", Label: "Dashboard", Category: PrimaryCategory, Description: "Business overview and journey map"},
		{ID: "workflows", Label: "Workflows", Category: PrimaryCategory, Description: "Create and track agent workflows"},
		{ID: "goals", Label: "Goals", Category: PrimaryCategory, Description: "Quarterly goals and milestones"},
		{ID: "calendar", Label: "Calendar", Category: PrimaryCategory, Description: "Schedule and upcoming deadlines"},
		{ID: "datarooms", Label: "Data Rooms", Category: SecondaryCategory, Description: "Connected storage providers"},
		{ID: "connections", Label: "Connections", Category: SecondaryCategory, Description: "OAuth provider connections"},
		{ID: "reports", Label: "Reports", Category: SecondaryCategory, Description: "Financial flow and agent activity"},
		{ID: "settings", Label: "Settings", Category: UtilityCategory, Description: "Workspace preferences"},
	}
}

// DefaultStrategy is the compiled-in per-mode suggestion table.
func DefaultStrategy() StaticStrategy {
	return StaticStrategy{
		mode.Morning: {"dashboard", "goals", "calendar"},
		mode.Active:  {"workflows", "datarooms", "reports"},
		mode.Evening: {"reports", "goals", "settings"},
	}
}

// DefaultRegistry returns the registry over DefaultItems.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultItems())
	if err != nil {
		panic(err) // compiled-in items are statically known to be valid
	}
	return r
}
