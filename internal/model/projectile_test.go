package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectileKeySpellings(t *testing.T) {
	want := "projectiles/tdfgauss01/tdfgauss01_proj.bp"
	for _, in := range []string{
		"/projectiles/TDFGauss01/TDFGauss01_proj.bp",
		"projectiles/TDFGauss01/TDFGauss01_proj.bp",
		`\projectiles\TDFGauss01\TDFGauss01_proj.bp`,
		" 'projectiles/tdfgauss01/TDFGAUSS01_proj.bp' ",
	} {
		assert.Equal(t, want, ProjectileKey(in), in)
	}
}

func TestProjectileFromTree(t *testing.T) {
	root := parse(t, `ProjectileBlueprint {
		Physics = { Fragments = 5, FragmentId = '/projectiles/Frag01/Frag01_proj.bp', Damage = 3 },
	}`)
	pd := ProjectileFromTree(root)
	require.NotNil(t, pd.FragmentCount)
	assert.Equal(t, 5, *pd.FragmentCount)
	assert.Equal(t, "/projectiles/Frag01/Frag01_proj.bp", pd.FragmentID)
	require.NotNil(t, pd.Damage)
	assert.Equal(t, 3.0, *pd.Damage)

	empty := ProjectileFromTree(parse(t, `{ Display = { Mesh = 'x' } }`))
	assert.Equal(t, ProjectileData{}, empty)
}

func TestEnrichUsesFragmentProjectileDamage(t *testing.T) {
	lookup := ProjectileLookup{
		"projectiles/cluster01/cluster01_proj.bp": {FragmentCount: ptr(4), FragmentID: "/projectiles/Frag01/Frag01_proj.bp", Damage: ptr(99.0)},
		"projectiles/frag01/frag01_proj.bp":       {Damage: ptr(25.0)},
	}
	w := WeaponDeclared{ID: "arty", Damage: 100, ProjectileID: "/projectiles/Cluster01/Cluster01_proj.bp"}
	got := lookup.Enrich(w)

	require.NotNil(t, got.FragmentCount)
	assert.Equal(t, 4, *got.FragmentCount)
	require.NotNil(t, got.FragmentDamage)
	assert.Equal(t, 25.0, *got.FragmentDamage)
	assert.Equal(t, 200.0, TotalDamagePerShot(got))
	assert.Nil(t, w.FragmentCount, "input weapon is not modified")
}

func TestEnrichFallsBackToParentDamage(t *testing.T) {
	lookup := ProjectileLookup{
		"projectiles/p/p_proj.bp": {FragmentCount: ptr(2), FragmentID: "/projectiles/missing/missing_proj.bp", Damage: ptr(10.0)},
	}
	got := lookup.Enrich(WeaponDeclared{Damage: 1, ProjectileID: "projectiles/P/P_proj.bp"})
	require.NotNil(t, got.FragmentDamage)
	assert.Equal(t, 10.0, *got.FragmentDamage)
	assert.Equal(t, 21.0, TotalDamagePerShot(got))
}

func TestEnrichWithoutFragments(t *testing.T) {
	lookup := ProjectileLookup{"projectiles/p/p_proj.bp": {Damage: ptr(10.0)}}
	w := WeaponDeclared{Damage: 1, ProjectileID: "/projectiles/p/p_proj.bp"}
	assert.Equal(t, w, lookup.Enrich(w))

	var none ProjectileLookup
	assert.Equal(t, w, none.Enrich(w))
}
