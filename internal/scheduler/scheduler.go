// Package scheduler replays the firing timeline of a unit's weapons over a
// fixed window and reports how many shots each weapon actually got off.
package scheduler

import (
	"math"
	"sort"

	"simlint/internal/model"
)

const (
	// TimeEpsilon is how close to the clock a weapon's next shot must be to fire.
	TimeEpsilon = 0.001
	// MinFireInterval is the shortest spacing between two shots of one
	// weapon. Shorter cycles and salvo spacings are raised to it.
	MinFireInterval = 0.01
	// MaxEvents bounds the events recorded by one Run.
	MaxEvents = 1 << 20
	// MaxExpectedShots bounds ExpectedShots.
	MaxExpectedShots = math.MaxInt32
)

// Weapon is the cadence of one weapon.
type Weapon struct {
	ID            string
	CycleTime     float64
	ShotsPerCycle int
	SalvoDuration float64
}

// FromEffective builds a scheduler weapon from derived statistics.
func FromEffective(id string, e model.WeaponEffective) Weapon {
	return Weapon{
		ID:            id,
		CycleTime:     e.CycleTime,
		ShotsPerCycle: e.ShotsPerCycle,
		SalvoDuration: e.SalvoDuration,
	}
}

// FireEvent is one shot.
type FireEvent struct {
	Time      float64 `json:"time"`
	WeaponID  string  `json:"weapon_id"`
	ShotIndex int     `json:"shot_index"`
}

// WeaponShots compares expected and simulated shots for the weapon at the
// same position in the input.
type WeaponShots struct {
	ID       string `json:"weapon_id"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

// Gap is a quiet period between two consecutive shots.
type Gap struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Before   string  `json:"before"`
	After    string  `json:"after"`
}

type Result struct {
	Window  float64       `json:"window_sec"`
	Events  []FireEvent   `json:"events"`
	Weapons []WeaponShots `json:"weapons"`
	Gaps    []Gap         `json:"gaps"`
}

func (r Result) TotalExpected() int {
	n := 0
	for _, w := range r.Weapons {
		n += w.Expected
	}
	return n
}

func (r Result) TotalActual() int {
	n := 0
	for _, w := range r.Weapons {
		n += w.Actual
	}
	return n
}

// ExpectedShots is floor(window / cycle) full cycles of shotsPerCycle shots,
// with the cycle raised to MinFireInterval and the result capped at
// MaxExpectedShots.
func ExpectedShots(w Weapon, window float64) int {
	if w.CycleTime <= 0 || window <= 0 {
		return 0
	}
	n := math.Floor(window/cycleInterval(w)) * float64(max(w.ShotsPerCycle, 1))
	if n >= MaxExpectedShots {
		return MaxExpectedShots
	}
	return int(n)
}

func cycleInterval(w Weapon) float64 {
	return math.Max(w.CycleTime, MinFireInterval)
}

func salvoInterval(w Weapon, shots int) float64 {
	return math.Max(w.SalvoDuration/float64(shots), MinFireInterval)
}

type weaponState struct {
	next float64
	shot int
}

// Run simulates weapons firing from t=0 until window. When several weapons
// are ready at the same time the one listed first fires first. Weapons with a
// non-positive cycle never fire. At most MaxEvents shots are recorded.
func Run(weapons []Weapon, window, gapTolerance float64) Result {
	res := Result{Window: window, Weapons: make([]WeaponShots, len(weapons))}
	for i, w := range weapons {
		res.Weapons[i] = WeaponShots{ID: w.ID, Expected: ExpectedShots(w, window)}
	}

	states := make([]weaponState, len(weapons))
	pending := func(i int) bool {
		return weapons[i].CycleTime > 0 && states[i].next < window
	}

	clock := 0.0
	for step, budget := 0, stepBudget(weapons, window); clock < window && step < budget && len(res.Events) < MaxEvents; step++ {
		pick := -1
		for i := range weapons {
			if pending(i) && states[i].next <= clock+TimeEpsilon {
				pick = i
				break
			}
		}
		if pick < 0 {
			earliest := math.Inf(1)
			for i := range weapons {
				if pending(i) && states[i].next < earliest {
					earliest = states[i].next
				}
			}
			if math.IsInf(earliest, 1) {
				break
			}
			clock = earliest
			continue
		}

		w, st := weapons[pick], &states[pick]
		t := st.next
		res.Events = append(res.Events, FireEvent{Time: t, WeaponID: w.ID, ShotIndex: st.shot})
		res.Weapons[pick].Actual++

		shots := max(w.ShotsPerCycle, 1)
		if w.SalvoDuration > 0 && st.shot+1 < shots {
			st.shot++
			st.next = t + salvoInterval(w, shots)
		} else {
			st.shot = 0
			st.next = t + cycleInterval(w)
		}
		clock = t
	}

	res.Gaps = FindGaps(res.Events, gapTolerance)
	return res
}

// FindGaps returns every pair of time-adjacent events at least tolerance apart.
func FindGaps(events []FireEvent, tolerance float64) []Gap {
	if len(events) < 2 {
		return nil
	}
	sorted := make([]FireEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var gaps []Gap
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if d := b.Time - a.Time; d >= tolerance {
			gaps = append(gaps, Gap{Start: a.Time, End: b.Time, Duration: d, Before: a.WeaponID, After: b.WeaponID})
		}
	}
	return gaps
}

// stepBudget caps the loop: every weapon can fire at most once per shortest
// interval, and each shot may be preceded by one clock jump.
func stepBudget(weapons []Weapon, window float64) int {
	const limit = 2*MaxEvents + 16
	budget := 16
	for _, w := range weapons {
		if w.CycleTime <= 0 {
			continue
		}
		interval := cycleInterval(w)
		if shots := max(w.ShotsPerCycle, 1); w.SalvoDuration > 0 && shots > 1 {
			interval = math.Min(interval, salvoInterval(w, shots))
		}
		n := math.Ceil(window/interval) + 1
		if n >= limit {
			return limit
		}
		budget += 2 * int(n)
		if budget >= limit {
			return limit
		}
	}
	return budget
}
