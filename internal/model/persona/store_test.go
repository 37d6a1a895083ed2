package persona

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestMemoryStoreFiltersAndOrders(t *testing.T) {
	store := NewMemoryStore([]Preset{
		{ID: 5, Prompt: "five"},
		{ID: 2, Prompt: "two"},
		{ID: 0, Prompt: "zero"},
		{ID: 11, Prompt: "eleven"},
		{ID: 3, Prompt: "   "},
		{ID: 2, Prompt: "two again"},
	})

	want := []Preset{{ID: 2, Prompt: "two again"}, {ID: 5, Prompt: "five"}}
	if got := store.List(); !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %+v, want %+v", got, want)
	}

	if _, ok := store.FindByID(3); ok {
		t.Fatal("expected blank preset 3 to be dropped")
	}
	if got := store.Default(); got != Seed()[0] {
		t.Fatalf("expected seed default, got %+v", got)
	}

	store.WithDefault(5)
	if got := store.Default().Prompt; got != "five" {
		t.Fatalf("expected default five, got %q", got)
	}
	store.WithDefault(9)
	if got := store.Default().Prompt; got != "five" {
		t.Fatalf("unknown default id should be ignored, got %q", got)
	}
}

func TestMemoryStoreListIsACopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Prompt = "changed"

	if got := store.List()[0].Prompt; got != Seed()[0].Prompt {
		t.Fatalf("store was modified through List(): %q", got)
	}
}

func writePresetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write preset file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writePresetFile(t, `
default: 2
prompts:
  - id: 2
    prompt: You are a pirate.
  - id: 1
    prompt: You are a butler.
`)

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got := store.Default().ID; got != 2 {
		t.Fatalf("expected default 2, got %d", got)
	}
	preset, ok := store.FindByID(1)
	if !ok {
		t.Fatal("expected preset 1")
	}
	if preset.Prompt != "You are a butler." {
		t.Fatalf("unexpected preset 1: %q", preset.Prompt)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := LoadFile(writePresetFile(t, "prompts: [oops")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}

	_, err := LoadFile(writePresetFile(t, "prompts:\n  - id: 12\n    prompt: too far\n"))
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out of range error, got %v", err)
	}
}
