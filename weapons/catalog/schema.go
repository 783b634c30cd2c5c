package catalog

import "encoding/json"

// EntryDefinition models the JSON contract for a designer-authored weapon
// tuning entry. It is shared with the schema generator so we can produce a
// machine-readable document for validation and editor tooling. Omitted fields
// inherit the built-in spec for the weapon type; durations are milliseconds.
type EntryDefinition struct {
	Type            string   `json:"type" jsonschema:"title=Weapon type,pattern=^[a-z]+$,description=Identifier of a weapon in the built-in catalog"`
	Damage          *float64 `json:"damage,omitempty" jsonschema:"description=Damage per hit (per pellet for multi-pellet weapons)"`
	FireRate        *float64 `json:"fireRate,omitempty" jsonschema:"description=Rounds per minute"`
	MagazineSize    *int     `json:"magazineSize,omitempty" jsonschema:"description=Rounds per magazine"`
	MaxReserve      *int     `json:"maxReserve,omitempty" jsonschema:"description=Rounds carried outside the magazine"`
	ReloadMs        *int64   `json:"reloadMs,omitempty" jsonschema:"description=Reload duration in milliseconds"`
	Accuracy        *float64 `json:"accuracy,omitempty" jsonschema:"description=Shot accuracy between 0 and 1 where 1 is perfectly tight"`
	Range           *float64 `json:"range,omitempty" jsonschema:"description=Maximum effective distance in world units"`
	Pellets         *int     `json:"pellets,omitempty" jsonschema:"description=Pellets per trigger pull for spread weapons"`
	SpreadAngle     *float64 `json:"spreadAngle,omitempty" jsonschema:"description=Pellet cone half-angle in radians"`
	HeatPerShot     *float64 `json:"heatPerShot,omitempty" jsonschema:"description=Heat added per shot for sustained-fire weapons"`
	HeatLimit       *float64 `json:"heatLimit,omitempty" jsonschema:"description=Heat level that forces an overheat lockout"`
	HeatCoolRate    *float64 `json:"heatCoolRate,omitempty" jsonschema:"description=Heat shed per second while not firing"`
	OverheatMs      *int64   `json:"overheatMs,omitempty" jsonschema:"description=Overheat lockout duration in milliseconds"`
	Penetration     *int     `json:"penetration,omitempty" jsonschema:"description=Number of targets a single shot can pass through"`
	ProjectileSpeed *float64 `json:"projectileSpeed,omitempty" jsonschema:"description=Projectile speed in world units per second"`
	ExplosionRadius *float64 `json:"explosionRadius,omitempty" jsonschema:"description=Blast radius in world units"`
	FuseMs          *int64   `json:"fuseMs,omitempty" jsonschema:"description=Thrown fuse duration in milliseconds"`
	ThrowSpeedBase  *float64 `json:"throwSpeedBase,omitempty" jsonschema:"description=Throw speed at zero charge"`
	ThrowSpeedBonus *float64 `json:"throwSpeedBonus,omitempty" jsonschema:"description=Throw speed added per charge level"`

	Blocks map[string]json.RawMessage `json:"-" jsonschema:"-"`
}

// FileDefinitions represents the contents of config/weapons/tuning.json. The
// loader accepts either arrays or objects keyed by weapon type; the schema
// models the canonical array format authored by designers.
type FileDefinitions []EntryDefinition
