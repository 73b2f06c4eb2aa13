package game

// countdown is the cancellable handle for one timed-phase run. The run loop
// identifies itself by pointer: if the game's timer field no longer points
// at this handle, the run has been superseded and must exit silently.
type countdown struct {
	stop chan struct{}
}

// runCountdownLocked starts a countdown of secs seconds, replacing any run
// already active for the game. Caller holds g.mu.
//
// Each tick broadcasts first and decrements after, so the value clients
// render matches what the server holds until the next tick. When the value
// goes negative, onComplete fires exactly once. Cancellation (a new phase
// starting, an early advance, or game deletion) never fires onComplete.
func (e *Engine) runCountdownLocked(g *Game, secs int, onComplete func()) {
	g.stopTimerLocked()
	c := &countdown{stop: make(chan struct{})}
	g.timer = c
	g.Countdown = secs
	go e.tickLoop(g, c, onComplete)
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		close(g.timer.stop)
		g.timer = nil
	}
}

func (e *Engine) tickLoop(g *Game, c *countdown, onComplete func()) {
	for {
		g.mu.Lock()
		if e.reg.Get(g.ID) == nil || g.timer != c {
			// Deleted or superseded mid-flight.
			g.mu.Unlock()
			return
		}
		snap := g.snapshotLocked()
		g.Countdown--
		done := g.Countdown < 0
		if done {
			g.timer = nil
		}
		g.mu.Unlock()

		e.broadcast.GameState(g.ID, snap)
		if done {
			onComplete()
			return
		}

		select {
		case <-c.stop:
			return
		case <-e.clock.After(e.timings.Tick):
		}
	}
}
