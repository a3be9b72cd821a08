// Package diff compares two scans: which units appeared or disappeared,
// whose effective DPS moved beyond a threshold, how anomaly counts shifted,
// and a line diff of each changed unit's stat profile.
package diff

import (
	"sort"

	"simlint/internal/audit"
	"simlint/internal/model"
)

// RegressionThreshold is the relative drop in effective DPS that counts as a
// regression.
const RegressionThreshold = 0.05

// DPSChange is a unit whose total effective DPS moved beyond the threshold.
type DPSChange struct {
	UnitID string  `json:"unit"`
	Before float64 `json:"dps_before"`
	After  float64 `json:"dps_after"`
}

// Delta is After/Before - 1, or 0 when Before is not positive.
func (c DPSChange) Delta() float64 {
	if c.Before <= 0 {
		return 0
	}
	return c.After/c.Before - 1
}

// AnomalyDelta is a unit whose anomaly count changed.
type AnomalyDelta struct {
	UnitID string `json:"unit"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// UnitChange holds the profile diff of a unit present in both scans.
type UnitChange struct {
	UnitID string `json:"unit"`
	Hunks  []Hunk `json:"hunks"`
}

// Result is the comparison of scan A (before) with scan B (after).
type Result struct {
	LabelA        string         `json:"scan_a"`
	LabelB        string         `json:"scan_b"`
	Added         []string       `json:"units_added"`
	Removed       []string       `json:"units_removed"`
	Common        int            `json:"units_common"`
	Regressions   []DPSChange    `json:"regressions"`
	Improvements  []DPSChange    `json:"improvements"`
	AnomalyDeltas []AnomalyDelta `json:"anomaly_deltas"`
	Changed       []UnitChange   `json:"changed,omitempty"`
}

// HasRegressions reports whether any unit lost effective DPS.
func (r *Result) HasRegressions() bool { return len(r.Regressions) > 0 }

// Compare matches units by normalized id. threshold <= 0 uses
// RegressionThreshold. All lists are sorted by unit id.
func Compare(a, b []audit.UnitSummary, threshold float64) *Result {
	if threshold <= 0 {
		threshold = RegressionThreshold
	}
	before := index(a)
	after := index(b)

	res := &Result{
		Added:         []string{},
		Removed:       []string{},
		Regressions:   []DPSChange{},
		Improvements:  []DPSChange{},
		AnomalyDeltas: []AnomalyDelta{},
	}
	engine := NewEngine()

	for _, key := range sortedKeys(after) {
		if _, ok := before[key]; !ok {
			res.Added = append(res.Added, after[key].UnitID.ID)
		}
	}
	for _, key := range sortedKeys(before) {
		ua := before[key]
		ub, ok := after[key]
		if !ok {
			res.Removed = append(res.Removed, ua.UnitID.ID)
			continue
		}
		res.Common++

		dpsA, dpsB := ua.TotalEffectiveDPS(), ub.TotalEffectiveDPS()
		change := DPSChange{UnitID: ua.UnitID.ID, Before: dpsA, After: dpsB}
		switch {
		case dpsB < dpsA*(1-threshold):
			res.Regressions = append(res.Regressions, change)
		case dpsB > dpsA*(1+threshold):
			res.Improvements = append(res.Improvements, change)
		}

		if na, nb := len(ua.Anomalies), len(ub.Anomalies); na != nb {
			res.AnomalyDeltas = append(res.AnomalyDeltas, AnomalyDelta{UnitID: ua.UnitID.ID, Before: na, After: nb})
		}

		if hunks := engine.Hunks(Profile(ua), Profile(ub), 2); len(hunks) > 0 {
			res.Changed = append(res.Changed, UnitChange{UnitID: ua.UnitID.ID, Hunks: hunks})
		}
	}
	return res
}

func index(units []audit.UnitSummary) map[string]*audit.UnitSummary {
	out := make(map[string]*audit.UnitSummary, len(units))
	for i := range units {
		key := model.NormalizeID(units[i].UnitID.ID)
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = &units[i]
	}
	return out
}

func sortedKeys(m map[string]*audit.UnitSummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
