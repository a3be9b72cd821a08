package anomaly

import (
	"fmt"
	"math"

	"simlint/internal/model"
)

// DeclaredVsEffective compares nominal (or an external declared figure)
// against effective DPS.
type DeclaredVsEffective struct {
	Thresholds
}

func (DeclaredVsEffective) Code() string { return CodeDeclaredVsEffective }

func (r DeclaredVsEffective) Evaluate(in *Input) []Anomaly {
	if in.DeclaredDPS != nil {
		declared := *in.DeclaredDPS
		total := 0.0
		for _, e := range in.Effective {
			total += e.EffectiveDPS
		}
		if !model.DPSMismatch(declared, total) {
			return nil
		}
		return []Anomaly{r.finding(in.UnitID, UnitTotalWeaponID, declared, total)}
	}

	var out []Anomaly
	for i, e := range in.Effective {
		if i >= len(in.Weapons) {
			break
		}
		if model.DPSMismatch(e.NominalDPS, e.EffectiveDPS) {
			out = append(out, r.finding(in.UnitID, in.Weapons[i].ID, e.NominalDPS, e.EffectiveDPS))
		}
	}
	return out
}

func (r DeclaredVsEffective) finding(unitID, weaponID string, declared, effective float64) Anomaly {
	ratio := Ratio(declared, effective)
	return Anomaly{
		Code:     CodeDeclaredVsEffective,
		Severity: r.RatioSeverity(ratio),
		Summary: fmt.Sprintf("Unit %s weapon %s: declared DPS %.1f vs effective %.1f (ratio %.2f).",
			unitID, weaponID, declared, effective, ratio),
		Technical: fmt.Sprintf("|declared - effective| = %.2f exceeds %.0f%% of max(declared, 1)",
			math.Abs(declared-effective), model.MismatchTolerance*100),
		WeaponIDs: []string{weaponID},
		UnitID:    unitID,
	}
}

// Ratio is effective/declared, or 0 when declared is not positive.
func Ratio(declared, effective float64) float64 {
	if declared <= 0 {
		return 0
	}
	return effective / declared
}

// RatioSeverity is Warn outside [RatioLow, RatioHigh] and Info inside.
func (t Thresholds) RatioSeverity(ratio float64) Severity {
	if ratio < t.RatioLow || ratio > t.RatioHigh {
		return Warn
	}
	return Info
}

// CadenceInterference flags multi-weapon units whose simulated shots fall
// short of the expected total.
type CadenceInterference struct {
	Thresholds
}

func (CadenceInterference) Code() string { return CodeCadenceInterference }

func (r CadenceInterference) Evaluate(in *Input) []Anomaly {
	if len(in.Weapons) <= 1 || in.Schedule == nil {
		return nil
	}
	expected, actual := in.Schedule.TotalExpected(), in.Schedule.TotalActual()
	if float64(actual) >= r.InterferenceRate*float64(expected) {
		return nil
	}
	ids := make([]string, 0, len(in.Weapons))
	for _, w := range in.Weapons {
		ids = append(ids, w.ID)
	}
	return []Anomaly{{
		Code:      CodeCadenceInterference,
		Severity:  Warn,
		Summary:   fmt.Sprintf("Unit %s: multi-weapon firing may reduce effective ROF (cadence interference suspected).", in.UnitID),
		Technical: fmt.Sprintf("Over %gs expected %d shots, got %d. Gaps: %d", in.Schedule.Window, expected, actual, len(in.Schedule.Gaps)),
		WeaponIDs: ids,
		UnitID:    in.UnitID,
	}}
}

// SalvoCooldownPattern reports each simulated gap longer than GapMultiplier
// times the gap tolerance.
type SalvoCooldownPattern struct {
	Thresholds
}

func (SalvoCooldownPattern) Code() string { return CodeSalvoCooldownPattern }

func (r SalvoCooldownPattern) Evaluate(in *Input) []Anomaly {
	if len(in.Weapons) <= 1 || in.Schedule == nil {
		return nil
	}
	limit := r.GapMultiplier * in.GapTolerance
	var out []Anomaly
	for _, g := range in.Schedule.Gaps {
		if g.Duration <= limit {
			continue
		}
		out = append(out, Anomaly{
			Code:      CodeSalvoCooldownPattern,
			Severity:  Info,
			Summary:   fmt.Sprintf("Unit %s weapon %s: salvo/cooldown pattern may cause unexpected gaps.", in.UnitID, g.Before),
			Technical: fmt.Sprintf("Gap %.2fs between %s and %s", g.Duration, g.Before, g.After),
			WeaponIDs: []string{g.Before, g.After},
			UnitID:    in.UnitID,
		})
	}
	return out
}
