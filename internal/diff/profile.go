package diff

import (
	"fmt"
	"strings"

	"simlint/internal/audit"
)

// Profile renders the comparable stats of a unit one fact per line, in a
// stable order, so that two profiles can be diffed line by line.
func Profile(u *audit.UnitSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unit %s\n", u.UnitID.ID)
	if u.UnitID.Name != "" {
		fmt.Fprintf(&sb, "name %s\n", u.UnitID.Name)
	}
	for i, w := range u.Weapons {
		fmt.Fprintf(&sb, "weapon %s damage=%g projectiles=%d rof=%g range=%g\n",
			w.ID, w.Damage, w.ProjectilesPerFire, w.RateOfFire, w.Range)
		if i < len(u.Effective) {
			e := u.Effective[i]
			fmt.Fprintf(&sb, "weapon %s nominal=%.2f effective=%.2f cycle=%.3f shots=%d\n",
				w.ID, e.NominalDPS, e.EffectiveDPS, e.CycleTime, e.ShotsPerCycle)
		}
	}
	fmt.Fprintf(&sb, "total effective=%.2f\n", u.TotalEffectiveDPS())
	for _, a := range u.Anomalies {
		fmt.Fprintf(&sb, "anomaly %s %s %s\n", a.Severity, a.Code, strings.Join(a.WeaponIDs, ","))
	}
	return sb.String()
}
