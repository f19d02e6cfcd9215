package models

// AppState holds the application state
type AppState struct {
	Width      int
	Height     int
	StatsWidth int
	ViewMode   ViewMode

	// Transient one-line message shown in the bottom bar
	Status      string
	StatusError bool
}

// ViewMode identifies what the keyboard currently drives
type ViewMode int

const (
	NormalMode ViewMode = iota
	HelpMode
	SearchMode
	RuleMode
	PresetMode
)

// NewAppState creates a new AppState with defaults
func NewAppState() AppState {
	return AppState{
		Width:      80,
		Height:     24,
		StatsWidth: 34,
		ViewMode:   NormalMode,
	}
}
