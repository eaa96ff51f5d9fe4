package app

// Timer names of a room
const (
	timerPick    = "pick"
	timerTick    = "tick"
	timerHint    = "hint"
	timerGrace   = "grace"
	timerAdvance = "advance"
)

// turnTimers is the set of live timers of one room. The whole set is stopped
// on every state transition; a timer that fires after being stopped or
// replaced no longer owns its slot and its action is dropped.
type turnTimers struct {
	active map[string]Timer
}

func newTurnTimers() *turnTimers {
	return &turnTimers{active: make(map[string]Timer)}
}

func (t *turnTimers) set(name string, timer Timer) {
	if old, ok := t.active[name]; ok {
		old.Stop()
	}
	t.active[name] = timer
}

func (t *turnTimers) has(name string) bool {
	_, ok := t.active[name]
	return ok
}

func (t *turnTimers) owns(name string, timer Timer) bool {
	current, ok := t.active[name]
	return ok && current == timer
}

func (t *turnTimers) done(name string) {
	delete(t.active, name)
}

func (t *turnTimers) stopAll() {
	for name, timer := range t.active {
		timer.Stop()
		delete(t.active, name)
	}
}

func (t *turnTimers) len() int {
	return len(t.active)
}
