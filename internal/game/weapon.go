package game

import (
	"fmt"
	"time"
)

// WeaponType names an equippable weapon.
type WeaponType string

const (
	WeaponPistol           WeaponType = "pistol"
	WeaponRevolver         WeaponType = "revolver"
	WeaponSuppressedPistol WeaponType = "suppressedpistol"
	WeaponRifle            WeaponType = "rifle"
	WeaponSMG              WeaponType = "smg"
	WeaponShotgun          WeaponType = "shotgun"
	WeaponSniperRifle      WeaponType = "sniperrifle"
	WeaponMachineGun       WeaponType = "machinegun"
	WeaponAntiMateriel     WeaponType = "antimaterielrifle"
	WeaponRocket           WeaponType = "rocket"
	WeaponGrenadeLauncher  WeaponType = "grenadelauncher"
	WeaponGrenade          WeaponType = "grenade"
	WeaponSmokeGrenade     WeaponType = "smokegrenade"
	WeaponFlashbang        WeaponType = "flashbang"
)

// WeaponClass determines how a trigger pull resolves.
type WeaponClass string

const (
	// ClassHitscan resolves instantly along a ray from the shooter.
	ClassHitscan WeaponClass = "hitscan"
	// ClassProjectile spawns a simulated projectile from the muzzle.
	ClassProjectile WeaponClass = "projectile"
	// ClassThrown spawns a fused projectile whose speed scales with charge.
	ClassThrown WeaponClass = "thrown"
)

// WeaponSpec is the immutable catalog entry for a weapon type. Live state
// copies the common numbers at creation and keeps the spec for class extras.
type WeaponSpec struct {
	Type         WeaponType
	Class        WeaponClass
	Damage       float64
	FireRate     float64 // rounds per minute
	MagazineSize int
	MaxReserve   int
	ReloadTime   time.Duration
	Accuracy     float64 // 0..1, higher is tighter
	Range        float64

	// Multi-pellet hitscan (shotguns).
	Pellets     int
	SpreadAngle float64

	// Sustained fire heat (machine guns).
	HeatPerShot     float64
	HeatLimit       float64
	HeatCoolRate    float64 // heat shed per second
	OverheatPenalty time.Duration

	// Target penetration (anti-materiel rifles).
	Penetration int

	// Launched and thrown projectiles.
	Projectile      ProjectileType
	ProjectileSpeed float64
	ExplosionRadius float64
	FuseTime        time.Duration
	ThrowSpeedBase  float64
	ThrowSpeedBonus float64 // added per charge level
}

// fireInterval converts rounds per minute into the minimum gap between shots.
func (s WeaponSpec) fireInterval() time.Duration {
	if s.FireRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / s.FireRate)
}

var weaponCatalog = map[WeaponType]WeaponSpec{
	WeaponPistol: {
		Type: WeaponPistol, Class: ClassHitscan,
		Damage: 25, FireRate: 450, MagazineSize: 12, MaxReserve: 36,
		ReloadTime: 1200 * time.Millisecond, Accuracy: 0.85, Range: 180,
	},
	WeaponRevolver: {
		Type: WeaponRevolver, Class: ClassHitscan,
		Damage: 55, FireRate: 150, MagazineSize: 6, MaxReserve: 18,
		ReloadTime: 2200 * time.Millisecond, Accuracy: 0.80, Range: 220,
	},
	WeaponSuppressedPistol: {
		Type: WeaponSuppressedPistol, Class: ClassHitscan,
		Damage: 20, FireRate: 500, MagazineSize: 15, MaxReserve: 45,
		ReloadTime: 1100 * time.Millisecond, Accuracy: 0.88, Range: 160,
	},
	WeaponRifle: {
		Type: WeaponRifle, Class: ClassHitscan,
		Damage: 30, FireRate: 600, MagazineSize: 30, MaxReserve: 90,
		ReloadTime: 2500 * time.Millisecond, Accuracy: 0.82, Range: 300,
	},
	WeaponSMG: {
		// Subsonic rounds are slow enough to simulate as real projectiles.
		Type: WeaponSMG, Class: ClassProjectile,
		Damage: 22, FireRate: 900, MagazineSize: 35, MaxReserve: 105,
		ReloadTime: 2 * time.Second, Accuracy: 0.70, Range: 200,
		Projectile: ProjectileBullet, ProjectileSpeed: 400,
	},
	WeaponShotgun: {
		Type: WeaponShotgun, Class: ClassHitscan,
		Damage: 9, FireRate: 70, MagazineSize: 8, MaxReserve: 32,
		ReloadTime: 3 * time.Second, Accuracy: 0.60, Range: 120,
		Pellets: 8, SpreadAngle: 0.25,
	},
	WeaponSniperRifle: {
		Type: WeaponSniperRifle, Class: ClassHitscan,
		Damage: 90, FireRate: 40, MagazineSize: 5, MaxReserve: 20,
		ReloadTime: 3500 * time.Millisecond, Accuracy: 0.98, Range: 480,
	},
	WeaponMachineGun: {
		Type: WeaponMachineGun, Class: ClassHitscan,
		Damage: 28, FireRate: 750, MagazineSize: 100, MaxReserve: 200,
		ReloadTime: 5 * time.Second, Accuracy: 0.65, Range: 350,
		HeatPerShot: 4, HeatLimit: 100, HeatCoolRate: 25, OverheatPenalty: 3 * time.Second,
	},
	WeaponAntiMateriel: {
		Type: WeaponAntiMateriel, Class: ClassHitscan,
		Damage: 140, FireRate: 30, MagazineSize: 5, MaxReserve: 15,
		ReloadTime: 4 * time.Second, Accuracy: 0.95, Range: 480,
		Penetration: 3,
	},
	WeaponRocket: {
		Type: WeaponRocket, Class: ClassProjectile,
		Damage: 150, FireRate: 30, MagazineSize: 1, MaxReserve: 4,
		ReloadTime: 4 * time.Second, Accuracy: 0.90, Range: 400,
		Projectile: ProjectileRocket, ProjectileSpeed: 220, ExplosionRadius: 50,
	},
	WeaponGrenadeLauncher: {
		Type: WeaponGrenadeLauncher, Class: ClassProjectile,
		Damage: 100, FireRate: 60, MagazineSize: 6, MaxReserve: 18,
		ReloadTime: 3 * time.Second, Accuracy: 0.75, Range: 250,
		Projectile: ProjectileShell, ProjectileSpeed: 180, ExplosionRadius: 40,
	},
	WeaponGrenade: {
		Type: WeaponGrenade, Class: ClassThrown,
		Damage: 120, FireRate: 60, MagazineSize: 2, MaxReserve: 2,
		ReloadTime: 2 * time.Second, Accuracy: 1, Range: 300,
		Projectile: ProjectileGrenade, ExplosionRadius: 45,
		FuseTime: 3 * time.Second, ThrowSpeedBase: 12, ThrowSpeedBonus: 18,
	},
	WeaponSmokeGrenade: {
		Type: WeaponSmokeGrenade, Class: ClassThrown,
		Damage: 0, FireRate: 60, MagazineSize: 2, MaxReserve: 2,
		ReloadTime: 2 * time.Second, Accuracy: 1, Range: 300,
		Projectile: ProjectileSmoke, ExplosionRadius: 60,
		FuseTime: 2 * time.Second, ThrowSpeedBase: 12, ThrowSpeedBonus: 18,
	},
	WeaponFlashbang: {
		Type: WeaponFlashbang, Class: ClassThrown,
		Damage: 0, FireRate: 60, MagazineSize: 2, MaxReserve: 2,
		ReloadTime: 2 * time.Second, Accuracy: 1, Range: 300,
		Projectile: ProjectileFlashbang, ExplosionRadius: 50,
		FuseTime: 1500 * time.Millisecond, ThrowSpeedBase: 12, ThrowSpeedBonus: 18,
	},
}

// defaultLoadout is what every player spawns with. The first entry is the
// initially active weapon.
var defaultLoadout = []WeaponType{WeaponRifle, WeaponPistol, WeaponGrenade}

// WeaponSpecFor looks up the built-in catalog entry for a weapon type.
func WeaponSpecFor(weaponType WeaponType) (WeaponSpec, bool) {
	spec, ok := weaponCatalog[weaponType]
	return spec, ok
}

// catalogWith overlays tuning entries onto the built-in catalog. Entries for
// unknown weapon types are dropped rather than invented: tuning adjusts
// weapons the simulation already knows how to fire.
func catalogWith(tuning []WeaponSpec) map[WeaponType]WeaponSpec {
	if len(tuning) == 0 {
		return weaponCatalog
	}
	merged := make(map[WeaponType]WeaponSpec, len(weaponCatalog))
	for weaponType, spec := range weaponCatalog {
		merged[weaponType] = spec
	}
	for _, spec := range tuning {
		if _, ok := merged[spec.Type]; ok {
			merged[spec.Type] = spec
		}
	}
	return merged
}

// WeaponState is the live, mutable state of one weapon instance.
type WeaponState struct {
	Type         WeaponType
	CurrentAmmo  int
	ReserveAmmo  int
	MaxAmmo      int
	MaxReserve   int
	Damage       float64
	FireRate     float64
	ReloadTime   time.Duration
	IsReloading  bool
	LastFireTime time.Time
	Accuracy     float64
	Range        float64
	Heat         float64

	reloadDoneAt    time.Time
	overheatedUntil time.Time
	spec            WeaponSpec
}

// NewWeaponState builds a fresh, fully stocked weapon of the given type with
// built-in catalog numbers.
func NewWeaponState(weaponType WeaponType) (*WeaponState, error) {
	return newWeaponStateFrom(weaponCatalog, weaponType)
}

func newWeaponStateFrom(catalog map[WeaponType]WeaponSpec, weaponType WeaponType) (*WeaponState, error) {
	spec, ok := catalog[weaponType]
	if !ok {
		return nil, fmt.Errorf("unknown weapon type %q", weaponType)
	}
	return &WeaponState{
		Type:        spec.Type,
		CurrentAmmo: spec.MagazineSize,
		ReserveAmmo: spec.MaxReserve,
		MaxAmmo:     spec.MagazineSize,
		MaxReserve:  spec.MaxReserve,
		Damage:      spec.Damage,
		FireRate:    spec.FireRate,
		ReloadTime:  spec.ReloadTime,
		Accuracy:    spec.Accuracy,
		Range:       spec.Range,
		spec:        spec,
	}, nil
}

// Spec returns the immutable catalog entry backing this weapon.
func (w *WeaponState) Spec() WeaponSpec {
	return w.spec
}

// overheated reports whether the weapon is locked out by heat at now.
func (w *WeaponState) overheated(now time.Time) bool {
	return !w.overheatedUntil.IsZero() && now.Before(w.overheatedUntil)
}

// coolDown sheds heat and clears an elapsed overheat lockout.
func (w *WeaponState) coolDown(now time.Time, dt float64) {
	if w.spec.HeatCoolRate > 0 && w.Heat > 0 {
		w.Heat -= w.spec.HeatCoolRate * dt
		if w.Heat < 0 {
			w.Heat = 0
		}
	}
	if !w.overheatedUntil.IsZero() && !now.Before(w.overheatedUntil) {
		w.overheatedUntil = time.Time{}
	}
}

// finishReload moves rounds from reserve into the magazine, never exceeding
// either pool. Returns how many rounds moved.
func (w *WeaponState) finishReload() int {
	w.IsReloading = false
	w.reloadDoneAt = time.Time{}
	missing := w.MaxAmmo - w.CurrentAmmo
	if missing <= 0 || w.ReserveAmmo <= 0 {
		return 0
	}
	moved := missing
	if moved > w.ReserveAmmo {
		moved = w.ReserveAmmo
	}
	w.CurrentAmmo += moved
	w.ReserveAmmo -= moved
	return moved
}

// cancelReload abandons an in-progress reload without moving ammo.
func (w *WeaponState) cancelReload() {
	w.IsReloading = false
	w.reloadDoneAt = time.Time{}
}

// snapshot copies the wire-visible weapon fields.
func (w *WeaponState) snapshot() Weapon {
	return Weapon{
		Type:         w.Type,
		CurrentAmmo:  w.CurrentAmmo,
		ReserveAmmo:  w.ReserveAmmo,
		MaxAmmo:      w.MaxAmmo,
		MaxReserve:   w.MaxReserve,
		Damage:       w.Damage,
		FireRate:     w.FireRate,
		ReloadTimeMs: w.ReloadTime.Milliseconds(),
		IsReloading:  w.IsReloading,
		Accuracy:     w.Accuracy,
		Range:        w.Range,
		Heat:         w.Heat,
	}
}
