package consolidate

import (
	"sort"
	"sync"
)

// Stats is an immutable snapshot of consolidation counters.
type Stats struct {
	// Corrections is the number of stray files fully migrated and removed.
	Corrections int `json:"corrections"`

	// DistinctStrays is the number of distinct stray filenames seen.
	DistinctStrays int `json:"distinct_strays"`

	// Encounters is the total number of stray-file migration attempts,
	// including skipped races. Always >= DistinctStrays.
	Encounters int `json:"encounters"`

	// SkippedRaces counts attempts aborted because the stray vanished
	// between listing and read.
	SkippedRaces int `json:"skipped_races"`

	// PassthroughLines counts lines copied verbatim because they failed to
	// decode as session records.
	PassthroughLines int `json:"passthrough_lines"`

	// LinesMigrated counts all lines appended to the canonical file.
	LinesMigrated int `json:"lines_migrated"`

	// StrayNames lists the distinct stray filenames seen, sorted.
	StrayNames []string `json:"stray_names"`
}

// statsCollector accumulates counters behind a mutex so that snapshots are
// safe to take concurrently with migrations.
type statsCollector struct {
	mu sync.Mutex

	corrections      int
	encounters       int
	skippedRaces     int
	passthroughLines int
	linesMigrated    int
	strayNames       map[string]struct{}
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		strayNames: make(map[string]struct{}),
	}
}

func (c *statsCollector) recordEncounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encounters++
	c.strayNames[name] = struct{}{}
}

func (c *statsCollector) recordSkip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skippedRaces++
}

func (c *statsCollector) recordCorrection(linesMigrated, passthrough int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corrections++
	c.linesMigrated += linesMigrated
	c.passthroughLines += passthrough
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.strayNames))
	for name := range c.strayNames {
		names = append(names, name)
	}
	sort.Strings(names)

	return Stats{
		Corrections:      c.corrections,
		DistinctStrays:   len(names),
		Encounters:       c.encounters,
		SkippedRaces:     c.skippedRaces,
		PassthroughLines: c.passthroughLines,
		LinesMigrated:    c.linesMigrated,
		StrayNames:       names,
	}
}
