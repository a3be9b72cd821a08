package model

import (
	"strings"

	"simlint/internal/blueprint"
)

// ProjectileData is the part of a projectile blueprint that matters for
// damage: how many fragments it splits into and what they are.
type ProjectileData struct {
	FragmentCount *int     `json:"fragment_count,omitempty"`
	FragmentID    string   `json:"fragment_id,omitempty"`
	Damage        *float64 `json:"damage,omitempty"`
}

// ProjectileLookup maps normalized projectile paths to their data. It is
// built once before a scan and only read afterwards.
type ProjectileLookup map[string]ProjectileData

// ProjectileKey normalizes a projectile reference: lower case, forward
// slashes, no leading slash.
func ProjectileKey(ref string) string {
	k := strings.TrimSpace(ref)
	k = strings.Trim(k, `"'`)
	k = strings.ToLower(strings.ReplaceAll(k, `\`, "/"))
	return strings.TrimLeft(k, "/")
}

// ProjectileFromTree reads Physics.Fragments, Physics.FragmentId and Damage
// (top level first, then Physics).
func ProjectileFromTree(root blueprint.Value) ProjectileData {
	var pd ProjectileData
	physics, hasPhysics := root.Table("Physics")
	if hasPhysics {
		pd.FragmentCount = intField(physics, "Fragments")
		if id, ok := physics.Text("FragmentId"); ok && strings.TrimSpace(id) != "" {
			pd.FragmentID = strings.TrimSpace(id)
		}
	}
	if d, ok := root.Number("Damage"); ok {
		pd.Damage = &d
	} else if hasPhysics {
		pd.Damage = floatField(physics, "Damage")
	}
	return pd
}

// Get looks up ref in any of its spellings.
func (l ProjectileLookup) Get(ref string) (ProjectileData, bool) {
	if len(l) == 0 || ref == "" {
		return ProjectileData{}, false
	}
	pd, ok := l[ProjectileKey(ref)]
	return pd, ok
}

// Enrich returns w with fragment data filled in from the weapon's projectile.
// Per-fragment damage comes from the fragment projectile when it is known,
// otherwise from the parent projectile.
func (l ProjectileLookup) Enrich(w WeaponDeclared) WeaponDeclared {
	proj, ok := l.Get(w.ProjectileID)
	if !ok || proj.FragmentCount == nil || *proj.FragmentCount <= 0 {
		return w
	}
	var dmg *float64
	if frag, ok := l.Get(proj.FragmentID); ok && frag.Damage != nil {
		dmg = frag.Damage
	} else if proj.Damage != nil {
		dmg = proj.Damage
	}
	if dmg == nil {
		return w
	}
	count, fd := *proj.FragmentCount, *dmg
	w.FragmentCount = &count
	w.FragmentDamage = &fd
	return w
}
