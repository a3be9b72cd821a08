package model

import "math"

const (
	// MinRateOfFire is the floor applied to declared rates of fire.
	MinRateOfFire = 0.001
	// MismatchTolerance is the relative nominal/effective difference tolerated.
	MismatchTolerance = 0.01
)

// WeaponEffective holds the statistics derived from one WeaponDeclared.
type WeaponEffective struct {
	NominalDPS    float64            `json:"nominal_dps"`
	EffectiveDPS  float64            `json:"effective_dps"`
	CycleTime     float64            `json:"cycle_time_sec"`
	ShotsPerCycle int                `json:"shots_per_cycle"`
	SalvoDuration float64            `json:"salvo_duration_sec"`
	ReloadSeconds float64            `json:"reload_sec"`
	TargetDPS     map[string]float64 `json:"target_class_dps,omitempty"`
}

// TotalDamagePerShot is direct damage plus initial damage plus fragments.
func TotalDamagePerShot(w WeaponDeclared) float64 {
	total := w.Damage
	if w.InitialDamage != nil {
		total += *w.InitialDamage
	}
	if w.FragmentCount != nil && w.FragmentDamage != nil {
		total += float64(*w.FragmentCount) * *w.FragmentDamage
	}
	return finite(total)
}

func NominalDPS(damage float64, projectiles int, rateOfFire float64) float64 {
	return finite(damage * float64(projectiles) * rateOfFire)
}

// CycleTime is the reload time when positive, otherwise the fire interval.
func CycleTime(rateOfFire float64, reload *float64) float64 {
	if reload != nil && *reload > 0 {
		return *reload
	}
	if rateOfFire <= 0 {
		return 0
	}
	return finite(1 / rateOfFire)
}

func SalvoDuration(size *int, delay *float64) float64 {
	if size == nil || delay == nil || *size <= 0 || *delay < 0 {
		return 0
	}
	return finite(float64(*size) * *delay)
}

func ShotsPerCycle(size *int) int {
	if size != nil && *size > 0 {
		return *size
	}
	return 1
}

// EffectiveDPS spreads one full cycle's damage over the cycle plus the salvo.
func EffectiveDPS(damage float64, projectiles, shotsPerCycle int, cycle, salvoDuration float64) float64 {
	denom := cycle + salvoDuration
	if denom <= 0 {
		return 0
	}
	return finite(damage * float64(projectiles) * float64(shotsPerCycle) / denom)
}

// DPSMismatch reports whether effective differs from nominal by more than
// MismatchTolerance of max(nominal, 1).
func DPSMismatch(nominal, effective float64) bool {
	return math.Abs(nominal-effective) > MismatchTolerance*math.Max(nominal, 1)
}

// Effective derives the statistics of w. Damage per shot includes fragments.
func Effective(w WeaponDeclared) WeaponEffective {
	damage := TotalDamagePerShot(w)
	projectiles := max(w.ProjectilesPerFire, 1)
	shots := ShotsPerCycle(w.SalvoSize)
	cycle := CycleTime(w.RateOfFire, w.ReloadTime)
	salvo := SalvoDuration(w.SalvoSize, w.SalvoDelay)
	eff := EffectiveDPS(damage, projectiles, shots, cycle, salvo)

	var byTarget map[string]float64
	if len(w.TargetCategories) > 0 {
		byTarget = make(map[string]float64, len(w.TargetCategories))
		for _, c := range w.TargetCategories {
			byTarget[c] = eff
		}
	}

	return WeaponEffective{
		NominalDPS:    NominalDPS(damage, projectiles, w.RateOfFire),
		EffectiveDPS:  eff,
		CycleTime:     cycle,
		ShotsPerCycle: shots,
		SalvoDuration: salvo,
		ReloadSeconds: cycle,
		TargetDPS:     byTarget,
	}
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
