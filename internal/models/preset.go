package models

import "time"

// Preset is a named, saved set of rules
type Preset struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Mode        FilterMode `yaml:"mode"`
	Rules       []Rule     `yaml:"rules"`
	CreatedAt   time.Time  `yaml:"created_at"`
	UpdatedAt   time.Time  `yaml:"updated_at"`
	UsageCount  int        `yaml:"usage_count"`
	LastUsed    time.Time  `yaml:"last_used,omitempty"`
}

// QuickFilter is a one-key preset that toggles a single rule
type QuickFilter struct {
	ID    string
	Label string
	Rule  Rule
}
