package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simlint/internal/model"
	"simlint/internal/scheduler"
)

func ptr[T any](v T) *T { return &v }

func weaponsInput(nominal, effective float64) *Input {
	return &Input{
		UnitID:    "uel0101",
		Weapons:   []model.WeaponDeclared{{ID: "gun"}},
		Effective: []model.WeaponEffective{{NominalDPS: nominal, EffectiveDPS: effective}},
	}
}

func TestDeclaredVsEffectiveWithinTolerance(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	assert.Empty(t, d.Detect(weaponsInput(100, 100.5)))
}

func TestDeclaredVsEffectiveWarn(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	got := d.Detect(weaponsInput(100, 70))
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, CodeDeclaredVsEffective, a.Code)
	assert.Equal(t, Warn, a.Severity)
	assert.Equal(t, []string{"gun"}, a.WeaponIDs)
	assert.Equal(t, "uel0101", a.UnitID)
	assert.Equal(t, "Unit uel0101 weapon gun: declared DPS 100.0 vs effective 70.0 (ratio 0.70).", a.Summary)
}

func TestDeclaredVsEffectiveInfoInsideBand(t *testing.T) {
	got := NewDetector(DefaultThresholds()).Detect(weaponsInput(100, 90))
	require.Len(t, got, 1)
	assert.Equal(t, Info, got[0].Severity)
}

func TestDeclaredOverrideReplacesPerWeaponChecks(t *testing.T) {
	in := &Input{
		UnitID:  "url0202",
		Weapons: []model.WeaponDeclared{{ID: "a"}, {ID: "b"}},
		Effective: []model.WeaponEffective{
			{NominalDPS: 100, EffectiveDPS: 35},
			{NominalDPS: 100, EffectiveDPS: 35},
		},
		DeclaredDPS: ptr(100.0),
	}
	got := DeclaredVsEffective{Thresholds: DefaultThresholds()}.Evaluate(in)
	require.Len(t, got, 1)
	assert.Equal(t, []string{UnitTotalWeaponID}, got[0].WeaponIDs)
	assert.Equal(t, Warn, got[0].Severity)
	assert.Contains(t, got[0].Summary, "(ratio 0.70)")
}

func TestDeclaredOverrideMatching(t *testing.T) {
	in := weaponsInput(500, 80)
	in.DeclaredDPS = ptr(80.0)
	assert.Empty(t, DeclaredVsEffective{Thresholds: DefaultThresholds()}.Evaluate(in))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(0, 10))
	assert.Equal(t, 0.0, Ratio(-5, 10))
	assert.Equal(t, 0.5, Ratio(20, 10))

	th := DefaultThresholds()
	assert.Equal(t, Info, th.RatioSeverity(0.8))
	assert.Equal(t, Info, th.RatioSeverity(1.25))
	assert.Equal(t, Warn, th.RatioSeverity(0.79))
	assert.Equal(t, Warn, th.RatioSeverity(1.26))
	assert.Equal(t, Warn, th.RatioSeverity(0))
}

func TestCadenceInterference(t *testing.T) {
	weapons := []scheduler.Weapon{
		{ID: "rockets", CycleTime: 1, ShotsPerCycle: 5, SalvoDuration: 1},
		{ID: "gun", CycleTime: 1, ShotsPerCycle: 1},
	}
	sched := scheduler.Run(weapons, 30, 0.05)
	require.Less(t, float64(sched.TotalActual()), 0.95*float64(sched.TotalExpected()))

	in := &Input{
		UnitID:       "xsl0303",
		Weapons:      []model.WeaponDeclared{{ID: "rockets"}, {ID: "gun"}},
		Effective:    []model.WeaponEffective{{}, {}},
		Schedule:     &sched,
		GapTolerance: 0.05,
	}
	got := NewDetector(DefaultThresholds()).Detect(in)

	var cadence, gaps int
	for _, a := range got {
		switch a.Code {
		case CodeCadenceInterference:
			cadence++
			assert.Equal(t, Warn, a.Severity)
			assert.Equal(t, []string{"rockets", "gun"}, a.WeaponIDs)
		case CodeSalvoCooldownPattern:
			gaps++
			assert.Equal(t, Info, a.Severity)
			assert.Len(t, a.WeaponIDs, 2)
		}
	}
	assert.Equal(t, 1, cadence)

	want := 0
	for _, g := range sched.Gaps {
		if g.Duration > 0.1 {
			want++
		}
	}
	assert.Equal(t, want, gaps)
}

func TestCadenceRulesSkipSingleWeapon(t *testing.T) {
	sched := scheduler.Run([]scheduler.Weapon{{ID: "burst", CycleTime: 2, ShotsPerCycle: 3}}, 30, 0.05)
	in := &Input{
		UnitID:       "single",
		Weapons:      []model.WeaponDeclared{{ID: "burst"}},
		Effective:    []model.WeaponEffective{{NominalDPS: 1, EffectiveDPS: 1}},
		Schedule:     &sched,
		GapTolerance: 0.05,
	}
	assert.Empty(t, CadenceInterference{Thresholds: DefaultThresholds()}.Evaluate(in))
	assert.Empty(t, SalvoCooldownPattern{Thresholds: DefaultThresholds()}.Evaluate(in))
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, Severity(""), MaxSeverity(nil))
	assert.Equal(t, Warn, MaxSeverity([]Anomaly{{Severity: Info}, {Severity: Warn}, {Severity: Info}}))
	assert.Equal(t, map[Severity]int{Info: 2, Warn: 1}, CountBySeverity([]Anomaly{{Severity: Info}, {Severity: Warn}, {Severity: Info}}))
}

func TestDetectorRuleCodes(t *testing.T) {
	var codes []string
	for _, r := range NewDetector(DefaultThresholds()).Rules() {
		codes = append(codes, r.Code())
	}
	assert.Equal(t, []string{CodeDeclaredVsEffective, CodeCadenceInterference, CodeSalvoCooldownPattern}, codes)
}
