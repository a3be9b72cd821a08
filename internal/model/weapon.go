// Package model turns parsed blueprints into typed weapon and unit records
// and derives their damage statistics. Everything here is pure.
package model

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"simlint/internal/blueprint"
)

// UnitID identifies a unit. ID is the lookup key; Name is for display.
type UnitID struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// WeaponDeclared is one weapon as written in a unit blueprint.
type WeaponDeclared struct {
	ID                  string   `json:"weapon_bp_id"`
	Damage              float64  `json:"damage"`
	InitialDamage       *float64 `json:"initial_damage,omitempty"`
	ProjectileID        string   `json:"projectile_id,omitempty"`
	FragmentCount       *int     `json:"fragment_count,omitempty"`
	FragmentDamage      *float64 `json:"fragment_damage,omitempty"`
	DamageRadius        float64  `json:"damage_radius"`
	ProjectilesPerFire  int      `json:"projectiles_per_fire"`
	RateOfFire          float64  `json:"rate_of_fire"`
	MuzzleVelocity      *float64 `json:"muzzle_velocity,omitempty"`
	Range               float64  `json:"max_range"`
	SalvoSize           *int     `json:"salvo_size,omitempty"`
	SalvoDelay          *float64 `json:"salvo_delay,omitempty"`
	ReloadTime          *float64 `json:"reload_time,omitempty"`
	RackSalvoSize       *int     `json:"rack_salvo_size,omitempty"`
	RackSalvoReloadTime *float64 `json:"rack_salvo_reload_time,omitempty"`
	MuzzleSalvoSize     *int     `json:"muzzle_salvo_size,omitempty"`
	MuzzleSalvoDelay    *float64 `json:"muzzle_salvo_delay,omitempty"`
	TurretCapable       bool     `json:"turret_capable"`
	TargetCategories    []string `json:"target_categories,omitempty"`
}

// WeaponFromTable reads a weapon table. ok is false when the table has no
// numeric Damage field. index is the 1-based position used for a fallback id.
func WeaponFromTable(t *blueprint.Table, index int) (w WeaponDeclared, ok bool) {
	damage, ok := t.Number("Damage")
	if !ok {
		return WeaponDeclared{}, false
	}

	w = WeaponDeclared{
		ID:                  weaponID(t, index),
		Damage:              math.Max(damage, 0),
		InitialDamage:       floatField(t, "InitialDamage"),
		DamageRadius:        math.Max(numberOr(t, "DamageRadius", 0), 0),
		RateOfFire:          math.Max(numberOr(t, "RateOfFire", 1), MinRateOfFire),
		Range:               numberOr(t, "MaxRadius", 0),
		RackSalvoSize:       intField(t, "RackSalvoSize"),
		RackSalvoReloadTime: floatField(t, "RackSalvoReloadTime"),
		MuzzleSalvoSize:     intField(t, "MuzzleSalvoSize"),
		MuzzleSalvoDelay:    floatField(t, "MuzzleSalvoDelay"),
		TargetCategories:    textList(t, "TargetCategories"),
	}
	if p, ok := t.Text("ProjectileId"); ok && strings.TrimSpace(p) != "" {
		w.ProjectileID = strings.TrimSpace(p)
	}
	if v, ok := t.Number("MuzzleVelocity"); ok && v > 0 {
		w.MuzzleVelocity = &v
	}
	if b, ok := t.Bool("TurretCapable"); ok {
		w.TurretCapable = b
	}

	w.ReloadTime = firstFloat(floatField(t, "ReloadTime"), w.RackSalvoReloadTime)

	// Rack and muzzle fields describe the salvo themselves; the legacy salvo
	// fields and per-fire projectile count only apply without them.
	if w.MuzzleSalvoSize != nil || w.RackSalvoSize != nil {
		w.SalvoSize = w.MuzzleSalvoSize
		w.SalvoDelay = w.MuzzleSalvoDelay
		w.ProjectilesPerFire = 1
		if w.RackSalvoSize != nil {
			w.ProjectilesPerFire = max(*w.RackSalvoSize, 1)
		}
	} else {
		w.SalvoSize = intField(t, "SalvoSize")
		w.SalvoDelay = floatField(t, "SalvoDelay")
		w.ProjectilesPerFire = max(int(math.Min(numberOr(t, "ProjectilesPerOnFire", 1), math.MaxInt32)), 1)
	}
	return w, true
}

// ExtractUnit reads the unit identity and its weapons. fallbackID is used when
// the blueprint declares no id. An empty weapon slice means the blueprint is
// not a unit worth analysing.
func ExtractUnit(root blueprint.Value, fallbackID string) (UnitID, []WeaponDeclared) {
	unit := UnitID{ID: fallbackID}
	for _, f := range []string{"BlueprintId", "UnitId", "ID"} {
		if s, ok := root.Text(f); ok && strings.TrimSpace(s) != "" {
			unit.ID = strings.TrimSpace(s)
			break
		}
	}
	unit.Name = unitName(root)

	wt, ok := root.Table("Weapon")
	if !ok {
		return unit, nil
	}
	var weapons []WeaponDeclared
	for i, el := range wt.Elements() {
		tbl, ok := el.AsTable()
		if !ok {
			continue
		}
		if w, ok := WeaponFromTable(tbl, i+1); ok {
			weapons = append(weapons, w)
		}
	}
	if len(weapons) == 0 {
		if w, ok := WeaponFromTable(wt, 1); ok {
			weapons = append(weapons, w)
		}
	}
	return unit, weapons
}

// FallbackUnitID derives a unit id from a blueprint file name:
// "units/UEL0101/UEL0101_unit.bp" becomes "UEL0101".
func FallbackUnitID(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if trimmed := strings.TrimSuffix(stem, "_unit"); trimmed != "" {
		return trimmed
	}
	return stem
}

// NormalizeID is the canonical form used for id lookups.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// StripLocTag removes a "<LOC key>" localisation prefix.
func StripLocTag(s string) string {
	if strings.HasPrefix(s, "<LOC ") {
		if end := strings.IndexByte(s, '>'); end >= 0 {
			return strings.TrimSpace(s[end+1:])
		}
	}
	return s
}

func unitName(root blueprint.Value) string {
	for _, f := range []string{"DisplayName", "Name"} {
		if s, ok := root.Text(f); ok && s != "" {
			return StripLocTag(s)
		}
	}
	if general, ok := root.Table("General"); ok {
		if s, ok := general.Text("UnitName"); ok && s != "" {
			return StripLocTag(s)
		}
	}
	if s, ok := root.Text("Description"); ok && s != "" {
		return StripLocTag(s)
	}
	return ""
}

func weaponID(t *blueprint.Table, index int) string {
	for _, f := range []string{"BlueprintId", "weapon_bp_id", "Label"} {
		if s, ok := t.Text(f); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fmt.Sprintf("weapon%d", index)
}

func numberOr(t *blueprint.Table, name string, def float64) float64 {
	if v, ok := t.Number(name); ok {
		return v
	}
	return def
}

func floatField(t *blueprint.Table, name string) *float64 {
	if v, ok := t.Number(name); ok {
		return &v
	}
	return nil
}

// intField truncates toward zero and ignores negative values.
func intField(t *blueprint.Table, name string) *int {
	v, ok := t.Number(name)
	if !ok || v < 0 || v > math.MaxInt32 {
		return nil
	}
	n := int(v)
	return &n
}

func textList(t *blueprint.Table, name string) []string {
	list, ok := t.Table(name)
	if !ok {
		return nil
	}
	var out []string
	for _, el := range list.Elements() {
		if s, ok := el.AsText(); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
