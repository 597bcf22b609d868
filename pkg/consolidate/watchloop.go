package consolidate

import "time"

// watchLoop drives detection cycles until done is closed. Each cycle runs to
// completion before the loop observes cancellation, so Stop never interrupts
// a migration mid-way.
func (e *Engine) watchLoop(done <-chan struct{}, kick <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Sweep immediately so strays created before Start are picked up without
	// waiting a full interval.
	e.runCycle()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.runCycle()
		case <-kick:
			e.runCycle()
		}
	}
}

// runCycle executes one sweep, containing any error to this cycle. A failed
// directory read backs off until the next scheduled tick.
func (e *Engine) runCycle() {
	if err := e.SweepNow(); err != nil {
		e.logger.Error().Err(err).Msg("Detection cycle failed, backing off until next tick")
	}
}
