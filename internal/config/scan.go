package config

import "runtime"

// ScanConfig controls blueprint discovery and the analysis worker pool.
type ScanConfig struct {
	// Workers caps concurrent blueprint analyses.
	Workers int `yaml:"workers" json:"workers,omitempty"`
	// IgnorePatterns skips matching file or directory names (glob syntax).
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns,omitempty"`
	// MaxFiles bounds how many blueprints a single scan will read.
	MaxFiles int `yaml:"max_files" json:"max_files,omitempty"`
	// MaxFileBytes skips blueprints larger than this.
	MaxFileBytes int64 `yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`
}

// DefaultScanConfig returns defaults for blueprint scanning.
func DefaultScanConfig() ScanConfig {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	return ScanConfig{
		Workers: workers,
		IgnorePatterns: []string{
			".git",
			"__MACOSX",
			"*_script.lua",
		},
		MaxFiles:     50000,
		MaxFileBytes: 2 * 1024 * 1024,
	}
}
