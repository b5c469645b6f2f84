// Package nav holds the navigation item registry and the per-mode
// suggestion strategy for the dashboard sidebar.
package nav

import (
	"os"

	"github.com/ArnovZ080/guildboard/pkg/mode"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Category string

const (
	PrimaryCategory   Category = "primary"
	SecondaryCategory Category = "secondary"
	UtilityCategory   Category = "utility"
)

// Item is a static navigation descriptor. Items are configuration, not
// user data.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Registry is an ordered set of navigation items with ID lookup.
type Registry struct {
	items []Item
	index map[string]Item
}

// NewRegistry builds a registry from items, rejecting duplicate IDs.
func NewRegistry(items []Item) (*Registry, error) {
	index := make(map[string]Item, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("navigation item with empty ID")
		}
		if _, ok := index[it.ID]; ok {
			return nil, errors.Errorf("duplicate navigation item '%s'", it.ID)
		}
		index[it.ID] = it
	}
	return &Registry{items: items, index: index}, nil
}

// Items returns all items in declaration order.
func (r *Registry) Items() []Item {
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Get looks up an item by ID.
func (r *Registry) Get(id string) (Item, bool) {
	it, ok := r.index[id]
	return it, ok
}

// Suggested resolves the strategy's suggestions for m against the
// registry, silently skipping IDs the registry does not know.
func (r *Registry) Suggested(s Strategy, m mode.Mode) []Item {
	var out []Item
	for _, id := range s.Suggest(m) {
		if it, ok := r.index[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Config is the YAML shape of the navigation configuration file.
type Config struct {
	Items       []Item              `yaml:"items"`
	Suggestions map[string][]string `yaml:"suggestions"`
}

// LoadConfig reads a navigation configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read nav config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse nav config %s", path)
	}
	return &cfg, nil
}

// Registry builds the item registry from the config.
func (c *Config) Registry() (*Registry, error) {
	return NewRegistry(c.Items)
}

// Strategy builds the static suggestion strategy from the config,
// rejecting unknown mode keys.
func (c *Config) Strategy() (StaticStrategy, error) {
	s := make(StaticStrategy, len(c.Suggestions))
	for key, ids := range c.Suggestions {
		m, err := mode.Parse(key)
		if err != nil {
			return nil, err
		}
		s[m] = ids
	}
	return s, nil
}
