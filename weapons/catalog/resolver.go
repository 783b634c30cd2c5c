// Package catalog loads designer-authored weapon tuning files and overlays
// them onto the built-in weapon catalog. Tuning can adjust the numbers of a
// weapon (damage, ammo, timings) but never its class: how a trigger pull
// resolves is fixed by the server build.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// Entry is the resolved tuning for a single weapon type: the built-in spec
// with the file's overrides applied, plus any extra JSON blocks that were
// present on disk (designer notes, client display hints).
type Entry struct {
	Type   game.WeaponType
	Spec   game.WeaponSpec
	Blocks map[string]json.RawMessage
}

func (e Entry) clone() Entry {
	return Entry{
		Type:   e.Type,
		Spec:   e.Spec,
		Blocks: cloneRawMap(e.Blocks),
	}
}

func cloneRawMap(src map[string]json.RawMessage) map[string]json.RawMessage {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]json.RawMessage, len(src))
	for key, value := range src {
		if len(value) == 0 {
			dst[key] = nil
			continue
		}
		copied := make(json.RawMessage, len(value))
		copy(copied, value)
		dst[key] = copied
	}
	return dst
}

// Resolver merges one or more tuning sources into a stable lookup table.
// Call Reload to pick up on-disk changes (used for dev hot reload).
type Resolver struct {
	mu      sync.RWMutex
	sources []source
	entries map[game.WeaponType]Entry
}

// DefaultPaths returns the canonical tuning file locations relative to the
// module root. Callers may pass these to Load.
func DefaultPaths() []string {
	candidates := []string{
		filepath.Join("config", "weapons", "tuning.json"),
		filepath.Join("..", "config", "weapons", "tuning.json"),
	}

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		cleaned := filepath.Clean(candidate)
		if _, duplicate := seen[cleaned]; duplicate {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}
	return paths
}

// Load constructs a Resolver backed by the provided tuning file paths.
// Missing files are skipped so a fresh checkout runs on built-in numbers.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary sources. Tests can supply
// in-memory sources while production code uses fileSource.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{
		sources: append([]source(nil), sources...),
		entries: make(map[game.WeaponType]Entry),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all tuning sources. Later sources override earlier ones to
// support local overlays during development.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	entries := make(map[game.WeaponType]Entry)
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("weapons: failed loading %s: %w", src.Path(), err)
		}
		documents, err := decodeEntries(data)
		if err != nil {
			return fmt.Errorf("weapons: failed parsing %s: %w", src.Path(), err)
		}
		seen := make(map[game.WeaponType]struct{}, len(documents))
		for _, doc := range documents {
			name := strings.TrimSpace(doc.Type)
			if name == "" {
				return fmt.Errorf("weapons: entry missing type in %s", src.Path())
			}
			weaponType := game.WeaponType(name)
			if _, dup := seen[weaponType]; dup {
				return fmt.Errorf("weapons: duplicate type %q in %s", name, src.Path())
			}
			seen[weaponType] = struct{}{}

			base, ok := game.WeaponSpecFor(weaponType)
			if !ok {
				return fmt.Errorf("weapons: entry %q references unknown weapon type", name)
			}
			if _, ok := doc.Blocks["class"]; ok {
				return fmt.Errorf("weapons: entry %q must not set class; weapon behavior is fixed by the server build", name)
			}
			spec, err := applyOverrides(base, doc)
			if err != nil {
				return fmt.Errorf("weapons: entry %q: %w", name, err)
			}

			entries[weaponType] = Entry{
				Type:   weaponType,
				Spec:   spec,
				Blocks: doc.Blocks,
			}
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// applyOverrides copies the non-nil tuning fields onto the built-in spec and
// rejects values the simulation cannot run with.
func applyOverrides(spec game.WeaponSpec, doc EntryDefinition) (game.WeaponSpec, error) {
	if doc.Damage != nil {
		if *doc.Damage < 0 {
			return spec, fmt.Errorf("damage must not be negative")
		}
		spec.Damage = *doc.Damage
	}
	if doc.FireRate != nil {
		if *doc.FireRate <= 0 {
			return spec, fmt.Errorf("fireRate must be positive")
		}
		spec.FireRate = *doc.FireRate
	}
	if doc.MagazineSize != nil {
		if *doc.MagazineSize < 1 {
			return spec, fmt.Errorf("magazineSize must be at least 1")
		}
		spec.MagazineSize = *doc.MagazineSize
	}
	if doc.MaxReserve != nil {
		if *doc.MaxReserve < 0 {
			return spec, fmt.Errorf("maxReserve must not be negative")
		}
		spec.MaxReserve = *doc.MaxReserve
	}
	if doc.ReloadMs != nil {
		if *doc.ReloadMs < 0 {
			return spec, fmt.Errorf("reloadMs must not be negative")
		}
		spec.ReloadTime = msToDuration(*doc.ReloadMs)
	}
	if doc.Accuracy != nil {
		if *doc.Accuracy <= 0 || *doc.Accuracy > 1 {
			return spec, fmt.Errorf("accuracy must be in (0, 1]")
		}
		spec.Accuracy = *doc.Accuracy
	}
	if doc.Range != nil {
		if *doc.Range <= 0 {
			return spec, fmt.Errorf("range must be positive")
		}
		spec.Range = *doc.Range
	}
	if doc.Pellets != nil {
		if *doc.Pellets < 1 {
			return spec, fmt.Errorf("pellets must be at least 1")
		}
		spec.Pellets = *doc.Pellets
	}
	if doc.SpreadAngle != nil {
		if *doc.SpreadAngle < 0 {
			return spec, fmt.Errorf("spreadAngle must not be negative")
		}
		spec.SpreadAngle = *doc.SpreadAngle
	}
	if doc.HeatPerShot != nil {
		if *doc.HeatPerShot < 0 {
			return spec, fmt.Errorf("heatPerShot must not be negative")
		}
		spec.HeatPerShot = *doc.HeatPerShot
	}
	if doc.HeatLimit != nil {
		if *doc.HeatLimit < 0 {
			return spec, fmt.Errorf("heatLimit must not be negative")
		}
		spec.HeatLimit = *doc.HeatLimit
	}
	if doc.HeatCoolRate != nil {
		if *doc.HeatCoolRate < 0 {
			return spec, fmt.Errorf("heatCoolRate must not be negative")
		}
		spec.HeatCoolRate = *doc.HeatCoolRate
	}
	if doc.OverheatMs != nil {
		if *doc.OverheatMs < 0 {
			return spec, fmt.Errorf("overheatMs must not be negative")
		}
		spec.OverheatPenalty = msToDuration(*doc.OverheatMs)
	}
	if doc.Penetration != nil {
		if *doc.Penetration < 0 {
			return spec, fmt.Errorf("penetration must not be negative")
		}
		spec.Penetration = *doc.Penetration
	}
	if doc.ProjectileSpeed != nil {
		if *doc.ProjectileSpeed <= 0 {
			return spec, fmt.Errorf("projectileSpeed must be positive")
		}
		spec.ProjectileSpeed = *doc.ProjectileSpeed
	}
	if doc.ExplosionRadius != nil {
		if *doc.ExplosionRadius < 0 {
			return spec, fmt.Errorf("explosionRadius must not be negative")
		}
		spec.ExplosionRadius = *doc.ExplosionRadius
	}
	if doc.FuseMs != nil {
		if *doc.FuseMs <= 0 {
			return spec, fmt.Errorf("fuseMs must be positive")
		}
		spec.FuseTime = msToDuration(*doc.FuseMs)
	}
	if doc.ThrowSpeedBase != nil {
		if *doc.ThrowSpeedBase <= 0 {
			return spec, fmt.Errorf("throwSpeedBase must be positive")
		}
		spec.ThrowSpeedBase = *doc.ThrowSpeedBase
	}
	if doc.ThrowSpeedBonus != nil {
		if *doc.ThrowSpeedBonus < 0 {
			return spec, fmt.Errorf("throwSpeedBonus must not be negative")
		}
		spec.ThrowSpeedBonus = *doc.ThrowSpeedBonus
	}
	return spec, nil
}

// Resolve returns the tuned spec for the provided weapon type.
func (r *Resolver) Resolve(weaponType game.WeaponType) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[weaponType]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Specs returns the tuned weapon specs sorted by type, ready to hand to the
// world config. Weapons without a tuning entry are absent; the simulation
// keeps its built-in numbers for them.
func (r *Resolver) Specs() []game.WeaponSpec {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]game.WeaponSpec, 0, len(r.entries))
	for _, entry := range r.entries {
		specs = append(specs, entry.Spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// Entries returns a cloned snapshot of the tuning entries keyed by weapon type.
func (r *Resolver) Entries() map[game.WeaponType]Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[game.WeaponType]Entry, len(r.entries))
	for weaponType, entry := range r.entries {
		out[weaponType] = entry.clone()
	}
	return out
}

func (e *EntryDefinition) UnmarshalJSON(data []byte) error {
	type rawEntry EntryDefinition
	var alias rawEntry
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var blocks map[string]json.RawMessage
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	for key := range blocks {
		if _, known := entryFields[key]; known {
			delete(blocks, key)
		}
	}
	if len(blocks) == 0 {
		blocks = nil
	}
	alias.Blocks = blocks
	*e = EntryDefinition(alias)
	return nil
}

// entryFields lists the JSON keys consumed by EntryDefinition itself; any
// other key on a tuning entry is preserved as an opaque metadata block.
var entryFields = map[string]struct{}{
	"type":            {},
	"damage":          {},
	"fireRate":        {},
	"magazineSize":    {},
	"maxReserve":      {},
	"reloadMs":        {},
	"accuracy":        {},
	"range":           {},
	"pellets":         {},
	"spreadAngle":     {},
	"heatPerShot":     {},
	"heatLimit":       {},
	"heatCoolRate":    {},
	"overheatMs":      {},
	"penetration":     {},
	"projectileSpeed": {},
	"explosionRadius": {},
	"fuseMs":          {},
	"throwSpeedBase":  {},
	"throwSpeedBonus": {},
}

func decodeEntries(data []byte) ([]EntryDefinition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var entries FileDefinitions
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(object))
		for name := range object {
			names = append(names, name)
		}
		sort.Strings(names)
		entries := make([]EntryDefinition, 0, len(names))
		for _, name := range names {
			var entry EntryDefinition
			if err := json.Unmarshal(object[name], &entry); err != nil {
				return nil, fmt.Errorf("entry %q: %w", name, err)
			}
			if entry.Type == "" {
				entry.Type = name
			} else if entry.Type != name {
				return nil, fmt.Errorf("entry type %q does not match key %q", entry.Type, name)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}
