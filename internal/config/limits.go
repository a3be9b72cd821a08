package config

import "fmt"

// Hard bounds on user-supplied numbers.
const (
	MaxSimulationSeconds = 3600
	MaxScanWorkers       = 256
	MaxFilesLimit        = 1000000
)

// ValidateLimits checks that scan and simulation settings are within
// acceptable ranges.
func (c *Config) ValidateLimits() error {
	if c.Simulation.Seconds <= 0 || c.Simulation.Seconds > MaxSimulationSeconds {
		return fmt.Errorf("simulation.seconds must be in (0, %d], got %g", MaxSimulationSeconds, c.Simulation.Seconds)
	}
	if c.Simulation.GapTolerance <= 0 {
		return fmt.Errorf("simulation.gap_tolerance must be > 0, got %g", c.Simulation.GapTolerance)
	}
	if c.Scan.Workers < 1 || c.Scan.Workers > MaxScanWorkers {
		return fmt.Errorf("scan.workers must be in [1, %d], got %d", MaxScanWorkers, c.Scan.Workers)
	}
	if c.Scan.MaxFiles < 1 || c.Scan.MaxFiles > MaxFilesLimit {
		return fmt.Errorf("scan.max_files must be in [1, %d], got %d", MaxFilesLimit, c.Scan.MaxFiles)
	}
	if c.Scan.MaxFileBytes < 1 {
		return fmt.Errorf("scan.max_file_bytes must be >= 1")
	}
	a := c.Anomaly
	if a.RatioLow <= 0 || a.RatioHigh < a.RatioLow {
		return fmt.Errorf("anomaly ratio band [%g, %g] is invalid", a.RatioLow, a.RatioHigh)
	}
	if a.InterferenceRate <= 0 || a.InterferenceRate > 1 {
		return fmt.Errorf("anomaly.interference_rate must be in (0, 1], got %g", a.InterferenceRate)
	}
	if a.GapMultiplier <= 0 {
		return fmt.Errorf("anomaly.gap_multiplier must be > 0")
	}
	return nil
}
