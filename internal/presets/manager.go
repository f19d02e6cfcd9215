package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// Manager manages saved rule presets
type Manager struct {
	path    string
	presets []models.Preset
}

// NewManager creates a preset manager backed by path
func NewManager(path string) (*Manager, error) {
	m := &Manager{
		path:    path,
		presets: []models.Preset{},
	}

	// Load existing presets if file exists
	if _, err := os.Stat(path); err == nil {
		if err := m.Load(); err != nil {
			return nil, fmt.Errorf("failed to load presets: %w", err)
		}
	}

	return m, nil
}

// Path returns the backing file
func (m *Manager) Path() string {
	return m.path
}

// Load loads presets from the YAML file
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read presets file: %w", err)
	}

	var presets []models.Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return fmt.Errorf("failed to parse presets: %w", err)
	}
	m.presets = presets

	return nil
}

// Save writes presets to the YAML file
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.presets)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write presets file: %w", err)
	}

	return nil
}

// Add saves rs under a new name
func (m *Manager) Add(name, description string, rs filter.RuleSet) (*models.Preset, error) {
	name = strings.TrimSpace(name)
	if err := m.checkName("", name, rs); err != nil {
		return nil, err
	}

	now := time.Now()
	preset := models.Preset{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Mode:        rs.Mode(),
		Rules:       rs.Rules(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.presets = append(m.presets, preset)

	if err := m.Save(); err != nil {
		return nil, fmt.Errorf("failed to save preset: %w", err)
	}

	return &preset, nil
}

// Update replaces the name, description and rules of an existing preset
func (m *Manager) Update(id, name, description string, rs filter.RuleSet) error {
	name = strings.TrimSpace(name)
	if err := m.checkName(id, name, rs); err != nil {
		return err
	}

	for i, p := range m.presets {
		if p.ID == id {
			m.presets[i].Name = name
			m.presets[i].Description = strings.TrimSpace(description)
			m.presets[i].Mode = rs.Mode()
			m.presets[i].Rules = rs.Rules()
			m.presets[i].UpdatedAt = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save preset: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("preset with ID '%s' was not found", id)
}

// checkName validates a name against every preset except the one with id
func (m *Manager) checkName(id, name string, rs filter.RuleSet) error {
	if name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if rs.IsEmpty() {
		return fmt.Errorf("preset '%s' has no rules", name)
	}
	for _, p := range m.presets {
		if p.ID != id && strings.EqualFold(p.Name, name) {
			return fmt.Errorf("a preset with the name '%s' already exists (names are case-insensitive)", name)
		}
	}
	return nil
}

// Delete deletes a preset by ID
func (m *Manager) Delete(id string) error {
	for i, p := range m.presets {
		if p.ID == id {
			m.presets = append(m.presets[:i], m.presets[i+1:]...)
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save presets after deletion: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("preset with ID '%s' was not found", id)
}

// Get returns a preset by ID
func (m *Manager) Get(id string) (*models.Preset, error) {
	for _, p := range m.presets {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("preset with ID '%s' was not found", id)
}

// GetByName returns a preset by case-insensitive name
func (m *Manager) GetByName(name string) (*models.Preset, error) {
	for _, p := range m.presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("preset '%s' was not found", name)
}

// GetAll returns all presets
func (m *Manager) GetAll() []models.Preset {
	return m.presets
}

// Search returns the presets whose name, description or rule columns
// contain query, most used first
func (m *Manager) Search(query string) []models.Preset {
	if query == "" {
		return byUsage(m.presets)
	}

	query = strings.ToLower(query)
	var results []models.Preset

	for _, p := range m.presets {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			results = append(results, p)
			continue
		}

		for _, r := range p.Rules {
			if strings.Contains(strings.ToLower(r.Column), query) {
				results = append(results, p)
				break
			}
		}
	}

	return byUsage(results)
}

// RecordUsage updates usage statistics for a preset
func (m *Manager) RecordUsage(id string) error {
	for i, p := range m.presets {
		if p.ID == id {
			m.presets[i].UsageCount++
			m.presets[i].LastUsed = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save usage statistics: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("preset with ID '%s' was not found", id)
}

// GetMostUsed returns the most frequently applied presets. A limit of 0
// returns them all.
func (m *Manager) GetMostUsed(limit int) []models.Preset {
	sorted := byUsage(m.presets)
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// byUsage returns a copy of presets ordered by usage count, then by most
// recent use
func byUsage(presets []models.Preset) []models.Preset {
	sorted := make([]models.Preset, len(presets))
	copy(sorted, presets)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UsageCount != sorted[j].UsageCount {
			return sorted[i].UsageCount > sorted[j].UsageCount
		}
		return sorted[i].LastUsed.After(sorted[j].LastUsed)
	})
	return sorted
}

// RuleSet rebuilds the preset's rules as a validated RuleSet
func RuleSet(p models.Preset) (filter.RuleSet, error) {
	rs, err := filter.NewRuleSetFrom(p.Mode, p.Rules...)
	if err != nil {
		return filter.RuleSet{}, fmt.Errorf("preset '%s': %w", p.Name, err)
	}
	return rs, nil
}
