// Package audit runs the full analysis of one unit blueprint: parse, extract,
// derive statistics, simulate cadence and detect anomalies. It performs no
// I/O and is safe to call from many goroutines as long as Options is not
// mutated concurrently.
package audit

import (
	"fmt"

	"simlint/internal/anomaly"
	"simlint/internal/blueprint"
	"simlint/internal/model"
	"simlint/internal/scheduler"
)

const (
	DefaultSimulationSeconds = 30.0
	DefaultGapTolerance      = 0.05
)

// Options configures an analysis.
type Options struct {
	SimulationSeconds float64
	GapTolerance      float64
	Thresholds        anomaly.Thresholds
	// DeclaredDPS maps lower-case unit ids to an externally declared DPS.
	DeclaredDPS map[string]float64
	Projectiles model.ProjectileLookup
}

func DefaultOptions() Options {
	return Options{
		SimulationSeconds: DefaultSimulationSeconds,
		GapTolerance:      DefaultGapTolerance,
		Thresholds:        anomaly.DefaultThresholds(),
	}
}

func (o Options) normalized() Options {
	if o.SimulationSeconds <= 0 {
		o.SimulationSeconds = DefaultSimulationSeconds
	}
	if o.GapTolerance <= 0 {
		o.GapTolerance = DefaultGapTolerance
	}
	if o.Thresholds == (anomaly.Thresholds{}) {
		o.Thresholds = anomaly.DefaultThresholds()
	}
	return o
}

// UnitSummary is the analysis result for one blueprint. Weapons[i] and
// Effective[i] describe the same weapon.
type UnitSummary struct {
	UnitID              model.UnitID            `json:"unit_id"`
	BlueprintPath       string                  `json:"blueprint_path"`
	Weapons             []model.WeaponDeclared  `json:"weapons"`
	Effective           []model.WeaponEffective `json:"effective"`
	Anomalies           []anomaly.Anomaly       `json:"anomalies"`
	DeclaredDPSOverride *float64                `json:"declared_dps_override,omitempty"`
	Shots               []scheduler.WeaponShots `json:"shots,omitempty"`
}

func (u *UnitSummary) TotalEffectiveDPS() float64 {
	total := 0.0
	for _, e := range u.Effective {
		total += e.EffectiveDPS
	}
	return total
}

func (u *UnitSummary) TotalNominalDPS() float64 {
	total := 0.0
	for _, e := range u.Effective {
		total += e.NominalDPS
	}
	return total
}

func (u *UnitSummary) MaxSeverity() anomaly.Severity {
	return anomaly.MaxSeverity(u.Anomalies)
}

// DisplayName is the unit name, or its id when it has none.
func (u *UnitSummary) DisplayName() string {
	if u.UnitID.Name != "" {
		return u.UnitID.Name
	}
	return u.UnitID.ID
}

// Analyze parses text and analyses it. It returns (nil, nil) when the
// blueprint declares no usable weapons.
func Analyze(path, text string, opts Options) (*UnitSummary, error) {
	root, err := blueprint.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return AnalyzeTree(path, root, opts), nil
}

// AnalyzeTree analyses an already parsed blueprint.
func AnalyzeTree(path string, root blueprint.Value, opts Options) *UnitSummary {
	opts = opts.normalized()

	unit, weapons := model.ExtractUnit(root, model.FallbackUnitID(path))
	if len(weapons) == 0 {
		return nil
	}

	effective := make([]model.WeaponEffective, len(weapons))
	for i := range weapons {
		weapons[i] = opts.Projectiles.Enrich(weapons[i])
		effective[i] = model.Effective(weapons[i])
	}

	summary := &UnitSummary{
		UnitID:        unit,
		BlueprintPath: path,
		Weapons:       weapons,
		Effective:     effective,
	}
	if dps, ok := opts.DeclaredDPS[model.NormalizeID(unit.ID)]; ok {
		summary.DeclaredDPSOverride = &dps
	}

	in := &anomaly.Input{
		UnitID:       unit.ID,
		Weapons:      weapons,
		Effective:    effective,
		DeclaredDPS:  summary.DeclaredDPSOverride,
		GapTolerance: opts.GapTolerance,
	}
	if len(weapons) > 1 {
		sw := make([]scheduler.Weapon, len(weapons))
		for i := range weapons {
			sw[i] = scheduler.FromEffective(weapons[i].ID, effective[i])
		}
		res := scheduler.Run(sw, opts.SimulationSeconds, opts.GapTolerance)
		in.Schedule = &res
		summary.Shots = res.Weapons
	}

	summary.Anomalies = anomaly.NewDetector(opts.Thresholds).Detect(in)
	if summary.Anomalies == nil {
		summary.Anomalies = []anomaly.Anomaly{}
	}
	return summary
}
