// Package anomaly turns statistic mismatches and simulated cadence problems
// into classified findings.
package anomaly

import (
	"simlint/internal/model"
	"simlint/internal/scheduler"
)

// Severity of a finding.
type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warn"
	Crit Severity = "crit"
)

// Rank orders severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case Info:
		return 1
	case Warn:
		return 2
	case Crit:
		return 3
	default:
		return 0
	}
}

// Stable finding codes.
const (
	CodeDeclaredVsEffective  = "DECLARED_VS_EFFECTIVE"
	CodeCadenceInterference  = "CADENCE_INTERFERENCE"
	CodeSalvoCooldownPattern = "SALVO_COOLDOWN_PATTERN"
)

// UnitTotalWeaponID names the whole unit in unit-level findings.
const UnitTotalWeaponID = "(unit total)"

type Anomaly struct {
	Code      string   `json:"code"`
	Severity  Severity `json:"severity"`
	Summary   string   `json:"summary"`
	Technical string   `json:"technical"`
	WeaponIDs []string `json:"weapon_ids"`
	UnitID    string   `json:"unit_id,omitempty"`
}

// Thresholds parameterize the default rules.
type Thresholds struct {
	RatioLow         float64 `yaml:"ratio_low" json:"ratio_low"`
	RatioHigh        float64 `yaml:"ratio_high" json:"ratio_high"`
	InterferenceRate float64 `yaml:"interference_rate" json:"interference_rate"`
	GapMultiplier    float64 `yaml:"gap_multiplier" json:"gap_multiplier"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RatioLow:         0.80,
		RatioHigh:        1.25,
		InterferenceRate: 0.95,
		GapMultiplier:    2,
	}
}

// Input is everything the rules look at for one unit. Weapons and Effective
// are parallel slices. Schedule is nil when the unit was not simulated.
type Input struct {
	UnitID       string
	Weapons      []model.WeaponDeclared
	Effective    []model.WeaponEffective
	DeclaredDPS  *float64
	Schedule     *scheduler.Result
	GapTolerance float64
}

// Rule is one independently evaluable check.
type Rule interface {
	Code() string
	Evaluate(in *Input) []Anomaly
}

// Detector runs rules in order.
type Detector struct {
	rules []Rule
}

// NewDetector returns a detector with the default rule set.
func NewDetector(t Thresholds) *Detector {
	return &Detector{rules: []Rule{
		DeclaredVsEffective{Thresholds: t},
		CadenceInterference{Thresholds: t},
		SalvoCooldownPattern{Thresholds: t},
	}}
}

// NewDetectorWithRules is for callers that want a custom rule table.
func NewDetectorWithRules(rules ...Rule) *Detector {
	return &Detector{rules: rules}
}

func (d *Detector) Rules() []Rule { return d.rules }

func (d *Detector) Detect(in *Input) []Anomaly {
	var out []Anomaly
	for _, r := range d.rules {
		out = append(out, r.Evaluate(in)...)
	}
	return out
}

// MaxSeverity returns the highest severity in list, or "" when it is empty.
func MaxSeverity(list []Anomaly) Severity {
	var top Severity
	for _, a := range list {
		if a.Severity.Rank() > top.Rank() {
			top = a.Severity
		}
	}
	return top
}

// CountBySeverity tallies findings.
func CountBySeverity(list []Anomaly) map[Severity]int {
	out := make(map[Severity]int, 3)
	for _, a := range list {
		out[a.Severity]++
	}
	return out
}
