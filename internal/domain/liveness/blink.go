package liveness

// state of the blink machine.
type state int

const (
	stateOpen state = iota
	stateClosing
)

// BlinkEvent is a closed interval of consecutive low-EAR frames whose length
// reached the debounce minimum.
type BlinkEvent struct {
	StartFrame int
	Frames     int
}

// Machine is the blink debounce state machine. It consumes one EAR sample at
// a time and emits a BlinkEvent when the eye reopens after a closure of at
// least the debounce length. The machine starts Open.
type Machine struct {
	threshold float64
	debounce  int

	st         state
	closedRun  int
	frameIndex int
}

// NewMachine builds a Machine with the given EAR threshold and debounce
// frame count.
func NewMachine(threshold float64, debounce int) *Machine {
	if debounce < 1 {
		debounce = 1
	}
	return &Machine{threshold: threshold, debounce: debounce}
}

// Observe feeds one EAR sample. It returns a finalized BlinkEvent and true
// when the sample closes out a debounced blink.
func (m *Machine) Observe(ear float64) (BlinkEvent, bool) {
	index := m.frameIndex
	m.frameIndex++

	if ear < m.threshold {
		m.closedRun++
		m.st = stateClosing
		return BlinkEvent{}, false
	}

	m.st = stateOpen
	if m.closedRun >= m.debounce {
		ev := BlinkEvent{StartFrame: index - m.closedRun, Frames: m.closedRun}
		m.closedRun = 0
		return ev, true
	}
	m.closedRun = 0
	return BlinkEvent{}, false
}

// Finish terminates the stream. A trailing closure that already reached the
// debounce length is emitted; shorter partial closures are discarded.
func (m *Machine) Finish() (BlinkEvent, bool) {
	if m.st == stateClosing && m.closedRun >= m.debounce {
		ev := BlinkEvent{StartFrame: m.frameIndex - m.closedRun, Frames: m.closedRun}
		m.closedRun = 0
		m.st = stateOpen
		return ev, true
	}
	m.closedRun = 0
	m.st = stateOpen
	return BlinkEvent{}, false
}
