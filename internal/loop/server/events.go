package server

// EventType identifies the kind of engine event.
type EventType int

const (
	EventPhaseChanged EventType = iota
	EventIdentityChanged
	EventWaveStarted
	EventTick
	EventEnemiesDestroyed
	EventEnemiesLeaked
	EventWaveCompleted
	EventTowerPlaced
	EventTowerUpgraded
	EventTowerSold
	EventIntelUpdated
	EventGameOver
)

func (t EventType) String() string {
	switch t {
	case EventPhaseChanged:
		return "phase changed"
	case EventIdentityChanged:
		return "identity changed"
	case EventWaveStarted:
		return "wave started"
	case EventTick:
		return "tick"
	case EventEnemiesDestroyed:
		return "enemies destroyed"
	case EventEnemiesLeaked:
		return "enemies leaked"
	case EventWaveCompleted:
		return "wave completed"
	case EventTowerPlaced:
		return "tower placed"
	case EventTowerUpgraded:
		return "tower upgraded"
	case EventTowerSold:
		return "tower sold"
	case EventIntelUpdated:
		return "intel updated"
	case EventGameOver:
		return "game over"
	default:
		return "unknown"
	}
}

// Event is a notification sent from the engine to subscribers. Only the
// fields relevant to Type are set.
type Event struct {
	Type    EventType
	Phase   Phase
	Outcome Outcome
	Wave    int
	Tower   int
	Count   int     // Enemies affected, or remaining for ticks
	Gold    float64 // Amount credited or debited
}

// eventBuffer is the capacity of each subscriber channel. Events beyond it
// are dropped for that subscriber.
const eventBuffer = 64

// Subscribe returns a channel receiving engine events and a function that
// cancels the subscription. Sends never block the engine; a subscriber
// that falls behind misses events but can always read Snapshot.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	e.subsMu.Lock()
	if e.subs == nil {
		// Engine already closed
		e.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	return ch, func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

func (e *Engine) emit(events ...Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ev := range events {
		for _, ch := range e.subs {
			select {
			case ch <- ev:
			default:
				// Subscriber full, drop event
			}
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
}
