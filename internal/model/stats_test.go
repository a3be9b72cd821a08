package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNominalDPSIsProduct(t *testing.T) {
	for _, damage := range []float64{0, 1, 12.5, 4000} {
		for _, projectiles := range []int{1, 2, 7} {
			for _, rof := range []float64{MinRateOfFire, 0.25, 1, 10} {
				assert.InDelta(t, damage*float64(projectiles)*rof, NominalDPS(damage, projectiles, rof), 1e-9)
			}
		}
	}
}

func TestCycleTime(t *testing.T) {
	assert.Equal(t, 3.5, CycleTime(2, ptr(3.5)))
	assert.Equal(t, 0.5, CycleTime(2, nil))
	assert.Equal(t, 0.25, CycleTime(4, ptr(0.0)), "non-positive reload falls back to 1/r")
	assert.Equal(t, 0.0, CycleTime(0, nil))
}

func TestSalvoDuration(t *testing.T) {
	assert.InDelta(t, 1.2, SalvoDuration(ptr(4), ptr(0.3)), 1e-12)
	assert.Equal(t, 0.0, SalvoDuration(ptr(4), ptr(0.0)))
	assert.Equal(t, 0.0, SalvoDuration(ptr(0), ptr(0.3)))
	assert.Equal(t, 0.0, SalvoDuration(ptr(4), ptr(-1.0)))
	assert.Equal(t, 0.0, SalvoDuration(nil, ptr(0.3)))
	assert.Equal(t, 0.0, SalvoDuration(ptr(4), nil))
}

func TestEffectiveDPSNonPositiveCycle(t *testing.T) {
	assert.Equal(t, 0.0, EffectiveDPS(100, 1, 1, 0, 0))
	assert.Equal(t, 0.0, EffectiveDPS(100, 1, 1, -1, 0.5))
	assert.InDelta(t, 300.0, EffectiveDPS(100, 1, 3, 0.5, 0.5), 1e-9)
}

func TestDPSMismatch(t *testing.T) {
	assert.False(t, DPSMismatch(100, 100.5))
	assert.False(t, DPSMismatch(100, 99.0))
	assert.True(t, DPSMismatch(100, 70))
	assert.True(t, DPSMismatch(100, 101.5))
	// Below 1 DPS the tolerance is absolute.
	assert.False(t, DPSMismatch(0.2, 0.205))
	assert.True(t, DPSMismatch(0, 0.02))
}

func TestTotalDamagePerShot(t *testing.T) {
	w := WeaponDeclared{Damage: 100}
	assert.Equal(t, 100.0, TotalDamagePerShot(w))

	w.InitialDamage = ptr(20.0)
	w.FragmentCount = ptr(5)
	w.FragmentDamage = ptr(10.0)
	assert.Equal(t, 170.0, TotalDamagePerShot(w))

	w.FragmentDamage = nil
	assert.Equal(t, 120.0, TotalDamagePerShot(w), "fragments without damage contribute nothing")
}

func TestEffective(t *testing.T) {
	w := WeaponDeclared{
		ID:                 "gun",
		Damage:             50,
		ProjectilesPerFire: 2,
		RateOfFire:         0.5,
		SalvoSize:          ptr(3),
		SalvoDelay:         ptr(0.5),
		ReloadTime:         ptr(4.0),
		TargetCategories:   []string{"LAND", "NAVAL"},
	}
	eff := Effective(w)
	assert.Equal(t, 50.0, eff.NominalDPS)
	assert.Equal(t, 4.0, eff.CycleTime)
	assert.Equal(t, 3, eff.ShotsPerCycle)
	assert.Equal(t, 1.5, eff.SalvoDuration)
	assert.Equal(t, 4.0, eff.ReloadSeconds)
	require.InDelta(t, 300.0/5.5, eff.EffectiveDPS, 1e-9)
	assert.Equal(t, map[string]float64{"LAND": eff.EffectiveDPS, "NAVAL": eff.EffectiveDPS}, eff.TargetDPS)
	assert.False(t, math.IsNaN(eff.EffectiveDPS))
}
