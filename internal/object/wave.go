package object

// WaveStatus is the lifecycle stage of a wave. Stages only move forward.
type WaveStatus int

const (
	WavePending WaveStatus = iota
	WaveActive
	WaveCompleted
)

func (s WaveStatus) String() string {
	switch s {
	case WavePending:
		return "pending"
	case WaveActive:
		return "in progress"
	case WaveCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Wave is one batch of enemies with its encoded descriptors.
type Wave struct {
	Number             int        `json:"number"`
	Enemies            []*Enemy   `json:"enemies"`
	EncodedPath        string     `json:"encoded_path"`
	EncodedComposition string     `json:"encoded_composition"`
	Hint               string     `json:"hint"`
	Status             WaveStatus `json:"status"`
}

// IsActive reports whether the wave's movement tick is running.
func (w *Wave) IsActive() bool {
	return w.Status == WaveActive
}

// Clone returns a deep copy safe to hand to observers.
func (w *Wave) Clone() Wave {
	c := *w
	c.Enemies = make([]*Enemy, len(w.Enemies))
	for i, e := range w.Enemies {
		ec := *e
		c.Enemies[i] = &ec
	}
	return c
}
