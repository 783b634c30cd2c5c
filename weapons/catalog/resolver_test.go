package catalog

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

type memorySource struct {
	path string
	data []byte
	err  error
}

func (m memorySource) Load() ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte(nil), m.data...), nil
}

func (m memorySource) Path() string {
	return m.path
}

func TestResolverLoadArray(t *testing.T) {
	data := mustMarshal([]map[string]any{{
		"type":         "rifle",
		"damage":       42,
		"magazineSize": 25,
		"notes":        "season 2 balance pass",
	}})

	resolver, err := NewResolver(memorySource{path: "inline.json", data: data})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	entry, ok := resolver.Resolve(game.WeaponRifle)
	if !ok {
		t.Fatalf("expected to resolve rifle entry")
	}
	if entry.Spec.Damage != 42 {
		t.Fatalf("expected damage 42, got %v", entry.Spec.Damage)
	}
	if entry.Spec.MagazineSize != 25 {
		t.Fatalf("expected magazine 25, got %d", entry.Spec.MagazineSize)
	}

	builtin, _ := game.WeaponSpecFor(game.WeaponRifle)
	if entry.Spec.Range != builtin.Range {
		t.Fatalf("expected omitted fields to inherit built-in values, got range %v", entry.Spec.Range)
	}
	if entry.Spec.Class != builtin.Class {
		t.Fatalf("expected class %q, got %q", builtin.Class, entry.Spec.Class)
	}
	if _, ok := entry.Blocks["notes"]; !ok {
		t.Fatalf("expected notes metadata block")
	}

	specs := resolver.Specs()
	if len(specs) != 1 || specs[0].Type != game.WeaponRifle {
		t.Fatalf("expected one compiled spec for rifle, got %v", specs)
	}
}

func TestResolverObjectSyntax(t *testing.T) {
	data := []byte(`{"pistol": {"damage": 30}}`)

	resolver, err := NewResolver(memorySource{path: "object.json", data: data})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	entry, ok := resolver.Resolve(game.WeaponPistol)
	if !ok || entry.Spec.Damage != 30 {
		t.Fatalf("expected pistol damage 30, got %+v ok=%v", entry, ok)
	}

	mismatched := []byte(`{"pistol": {"type": "rifle", "damage": 30}}`)
	if _, err := NewResolver(memorySource{path: "bad.json", data: mismatched}); err == nil {
		t.Fatalf("expected mismatched key and type to fail")
	} else if !strings.Contains(err.Error(), "does not match key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolverReloadOverrides(t *testing.T) {
	base := memorySource{path: "base.json", data: mustMarshal([]map[string]any{{
		"type":   "rifle",
		"damage": 35,
	}})}
	override := memorySource{path: "override.json", data: mustMarshal([]map[string]any{{
		"type":   "rifle",
		"damage": 40,
	}})}

	resolver, err := NewResolver(base, override)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	if entry, _ := resolver.Resolve(game.WeaponRifle); entry.Spec.Damage != 40 {
		t.Fatalf("expected override damage 40, got %v", entry.Spec.Damage)
	}

	// Mutate the override source to confirm Reload picks up changes.
	override.data = mustMarshal([]map[string]any{{
		"type":   "rifle",
		"damage": 45,
	}})
	resolver.mu.Lock()
	resolver.sources[1] = override
	resolver.mu.Unlock()

	if err := resolver.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if entry, _ := resolver.Resolve(game.WeaponRifle); entry.Spec.Damage != 45 {
		t.Fatalf("expected damage 45 after reload, got %v", entry.Spec.Damage)
	}
}

func TestResolverRejectsUnknownWeapon(t *testing.T) {
	data := mustMarshal([]map[string]any{{
		"type":   "crossbow",
		"damage": 50,
	}})

	resolver, err := NewResolver(memorySource{path: "unknown.json", data: data})
	if err == nil {
		t.Fatalf("expected NewResolver to fail for unknown weapon type")
	}
	if !strings.Contains(err.Error(), "unknown weapon type") {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver != nil {
		t.Fatalf("expected resolver to be nil when validation fails")
	}
}

func TestResolverRejectsDuplicateTypes(t *testing.T) {
	data := mustMarshal([]map[string]any{
		{"type": "rifle", "damage": 35},
		{"type": "rifle", "damage": 40},
	})

	resolver, err := NewResolver(memorySource{path: "duplicate.json", data: data})
	if err == nil {
		t.Fatalf("expected NewResolver to fail due to duplicate types")
	}
	if resolver != nil {
		t.Fatalf("expected resolver to be nil when duplicates are present")
	}
}

func TestResolverEnforcesTuningInvariants(t *testing.T) {
	cases := []struct {
		name  string
		entry map[string]any
		want  string
	}{
		{
			name:  "accuracy-above-one",
			entry: map[string]any{"type": "rifle", "accuracy": 1.5},
			want:  "accuracy",
		},
		{
			name:  "empty-magazine",
			entry: map[string]any{"type": "rifle", "magazineSize": 0},
			want:  "magazineSize",
		},
		{
			name:  "negative-damage",
			entry: map[string]any{"type": "rifle", "damage": -5},
			want:  "damage",
		},
		{
			name:  "zero-fuse",
			entry: map[string]any{"type": "grenade", "fuseMs": 0},
			want:  "fuseMs",
		},
		{
			name:  "stalled-projectile",
			entry: map[string]any{"type": "rocket", "projectileSpeed": 0},
			want:  "projectileSpeed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := mustMarshal([]map[string]any{tc.entry})
			resolver, err := NewResolver(memorySource{path: "managed.json", data: data})
			if err == nil {
				t.Fatalf("expected NewResolver to fail validation")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to contain %q, got %v", tc.want, err)
			}
			if resolver != nil {
				t.Fatalf("expected resolver to be nil when validation fails")
			}
		})
	}
}

func TestResolverRejectsClassOverride(t *testing.T) {
	data := mustMarshal([]map[string]any{{
		"type":  "rifle",
		"class": "projectile",
	}})

	resolver, err := NewResolver(memorySource{path: "class.json", data: data})
	if err == nil {
		t.Fatalf("expected NewResolver to fail when class is declared explicitly")
	}
	if !strings.Contains(err.Error(), "must not set class") {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver != nil {
		t.Fatalf("expected resolver to be nil on error")
	}
}

func TestLoadIgnoresMissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.json")
	resolver, err := Load(missing)
	if err != nil {
		t.Fatalf("Load returned error for missing path: %v", err)
	}
	if resolver == nil {
		t.Fatalf("expected resolver to be created even when files are missing")
	}
	if entries := resolver.Entries(); len(entries) != 0 {
		t.Fatalf("expected no entries when sources are missing, got %d", len(entries))
	}
}

func TestEntriesReturnClones(t *testing.T) {
	data := mustMarshal([]map[string]any{{
		"type":   "pistol",
		"damage": 28,
		"notes":  "slight buff",
	}})

	resolver, err := NewResolver(memorySource{path: "catalog.json", data: data})
	if err != nil {
		t.Fatalf("failed to construct resolver: %v", err)
	}

	entries := resolver.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single entry, got %d", len(entries))
	}
	entry := entries[game.WeaponPistol]
	entry.Blocks["notes"] = json.RawMessage(`"mutated"`)
	entry.Spec.Damage = 999

	snapshot := resolver.Entries()
	if snapshot[game.WeaponPistol].Spec.Damage != 28 {
		t.Fatalf("expected resolver entries to remain unchanged after mutation")
	}
	if string(snapshot[game.WeaponPistol].Blocks["notes"]) == `"mutated"` {
		t.Fatalf("expected cloned blocks to prevent external mutation")
	}
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()
	if len(paths) == 0 {
		t.Fatalf("expected default paths to include at least one candidate")
	}

	expected := map[string]bool{
		filepath.Join("config", "weapons", "tuning.json"):       false,
		filepath.Join("..", "config", "weapons", "tuning.json"): false,
	}

	for _, path := range paths {
		if filepath.Base(path) != "tuning.json" {
			t.Fatalf("unexpected default path %q", path)
		}
		if _, ok := expected[path]; ok {
			expected[path] = true
		}
	}

	if !expected[filepath.Join("config", "weapons", "tuning.json")] {
		t.Fatalf("expected config/weapons/tuning.json to be included in default paths")
	}
	if !expected[filepath.Join("..", "config", "weapons", "tuning.json")] {
		t.Fatalf("expected ../config/weapons/tuning.json to be included in default paths")
	}
}

func TestDefaultPathsResolveFromRepoRoot(t *testing.T) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("failed to determine caller path")
	}

	packageDir := filepath.Dir(file)
	repoRoot := filepath.Clean(filepath.Join(packageDir, "..", ".."))

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(cwd)
	}()

	if err := os.Chdir(repoRoot); err != nil {
		t.Fatalf("failed to change directory to repo root: %v", err)
	}

	paths := DefaultPaths()
	var resolved bool
	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				continue
			}
			t.Fatalf("stat %q failed: %v", path, statErr)
		}
		if info.IsDir() {
			continue
		}
		resolved = true
		break
	}

	if !resolved {
		t.Fatalf("expected at least one default path to resolve from repo root; paths=%v", paths)
	}
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
