package persona

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxPresetID bounds the numbered system prompt slots.
const MaxPresetID = 10

// Preset is a fixed, numbered system prompt a client may select instead of a
// synthesized persona prompt.
type Preset struct {
	ID     int    `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Store exposes preset retrieval for HTTP handlers.
type Store interface {
	List() []Preset
	FindByID(id int) (Preset, bool)
	Default() Preset
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items     []Preset
	defaultID int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied presets. Presets
// with an empty prompt or an id outside 1..MaxPresetID are dropped; later entries
// replace earlier ones with the same id.
func NewMemoryStore(items []Preset) *MemoryStore {
	byID := make(map[int]Preset, len(items))
	for _, item := range items {
		item.Prompt = strings.TrimSpace(item.Prompt)
		if item.ID < 1 || item.ID > MaxPresetID || item.Prompt == "" {
			continue
		}
		byID[item.ID] = item
	}

	kept := make([]Preset, 0, len(byID))
	for _, item := range byID {
		kept = append(kept, item)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })

	return &MemoryStore{items: kept, defaultID: 1}
}

// List returns the configured presets ordered by id.
func (s *MemoryStore) List() []Preset {
	return append([]Preset(nil), s.items...)
}

// FindByID looks up a preset by its number.
func (s *MemoryStore) FindByID(id int) (Preset, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Preset{}, false
}

// Default returns the preset used when a client asks for none; the seed prompt if
// the default slot was never filled.
func (s *MemoryStore) Default() Preset {
	if item, ok := s.FindByID(s.defaultID); ok {
		return item
	}
	return Seed()[0]
}

// WithDefault switches the default slot; ids without a preset are ignored.
func (s *MemoryStore) WithDefault(id int) *MemoryStore {
	if _, ok := s.FindByID(id); ok {
		s.defaultID = id
	}
	return s
}

// Seed provides the built-in preset table. Slots 2..10 are left for operators.
func Seed() []Preset {
	return []Preset{
		{ID: 1, Prompt: "You are a helpful assistant. Provide clear and concise responses to user queries."},
	}
}

type presetFile struct {
	Default int      `yaml:"default"`
	Prompts []Preset `yaml:"prompts"`
}

// LoadFile reads a YAML preset file and layers it over the seed table.
//
//	default: 2
//	prompts:
//	  - id: 2
//	    prompt: You are a pirate.
func LoadFile(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}

	for _, item := range file.Prompts {
		if item.ID < 1 || item.ID > MaxPresetID {
			return nil, fmt.Errorf("preset id %d out of range 1..%d", item.ID, MaxPresetID)
		}
	}

	store := NewMemoryStore(append(Seed(), file.Prompts...))
	if file.Default != 0 {
		store.WithDefault(file.Default)
	}
	return store, nil
}
