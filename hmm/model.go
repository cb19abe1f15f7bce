package hmm

import (
	"math"
)

var logZero = math.Inf(-1)

// Model is a first-order HMM over POS tags. It is immutable once built and
// can be shared by any number of goroutines.
type Model struct {
	states     []string
	stateIndex map[string]int

	// probabilities, indexed by state enumeration order
	initial    []float64
	transition []float64 // from*S + to
	emission   map[string][]float64

	// log probabilities used by the decoder
	logInitial []float64
	logArrival []float64 // to*S + from, contiguous over predecessors
	logEmit    map[string][]float64

	snapshot    Snapshot
	fingerprint uint64
}

func newModel(snap Snapshot) (*Model, error) {
	size := len(snap.States)
	m := &Model{
		states:     make([]string, size),
		stateIndex: make(map[string]int, size),
		initial:    make([]float64, size),
		transition: make([]float64, size*size),
		emission:   make(map[string][]float64),
		logInitial: make([]float64, size),
		logArrival: make([]float64, size*size),
		logEmit:    make(map[string][]float64),
		snapshot:   snap,
	}
	for i, state := range snap.States {
		m.states[i] = state.Tag
		m.stateIndex[state.Tag] = i
	}

	initialDenominator := snap.Sentences
	if snap.InitialDenominator == DenominatorContributing {
		initialDenominator = snap.Contributing
	}
	for tag, count := range snap.Initial {
		m.initial[m.stateIndex[tag]] = float64(count) / float64(initialDenominator)
	}

	for from, row := range snap.Transitions {
		fromIdx := m.stateIndex[from]
		denominator := snap.States[fromIdx].Count
		if snap.TransitionDenominator == TransitionsOutgoing {
			denominator = 0
			for _, count := range row {
				denominator += count
			}
		}
		for to, count := range row {
			m.transition[fromIdx*size+m.stateIndex[to]] = float64(count) / float64(denominator)
		}
	}

	for tag, row := range snap.Emissions {
		idx := m.stateIndex[tag]
		denominator := float64(snap.States[idx].Count)
		for token, count := range row {
			column, ok := m.emission[token]
			if !ok {
				column = make([]float64, size)
				m.emission[token] = column
			}
			column[idx] = float64(count) / denominator
		}
	}

	for i, p := range m.initial {
		m.logInitial[i] = safeLog(p)
	}
	for from := 0; from < size; from++ {
		for to := 0; to < size; to++ {
			m.logArrival[to*size+from] = safeLog(m.transition[from*size+to])
		}
	}
	for token, column := range m.emission {
		logColumn := make([]float64, size)
		for i, p := range column {
			logColumn[i] = safeLog(p)
		}
		m.logEmit[token] = logColumn
	}

	m.fingerprint = fingerprint(snap)
	return m, nil
}

func safeLog(p float64) float64 {
	if p <= 0 {
		return logZero
	}
	return math.Log(p)
}

// Initial is the probability that a sentence starts with tag; 0 if unseen.
func (m *Model) Initial(tag string) float64 {
	idx, ok := m.stateIndex[tag]
	if !ok {
		return 0
	}
	return m.initial[idx]
}

// Transition is the probability that to follows from; 0 if unseen.
func (m *Model) Transition(from string, to string) float64 {
	fromIdx, ok := m.stateIndex[from]
	if !ok {
		return 0
	}
	toIdx, ok := m.stateIndex[to]
	if !ok {
		return 0
	}
	return m.transition[fromIdx*len(m.states)+toIdx]
}

// Emission is the probability that tag produces token; 0 if unseen.
func (m *Model) Emission(tag string, token string) float64 {
	idx, ok := m.stateIndex[tag]
	if !ok {
		return 0
	}
	column, ok := m.emission[token]
	if !ok {
		return 0
	}
	return column[idx]
}

// InVocabulary reports whether token was emitted by any state in training,
// at any position of a sentence.
func (m *Model) InVocabulary(token string) bool {
	_, ok := m.emission[token]
	return ok
}

// VocabularySize is the number of distinct training tokens.
func (m *Model) VocabularySize() int {
	return len(m.emission)
}

// States returns the tags in enumeration order.
func (m *Model) States() []string {
	return append([]string(nil), m.states...)
}

// StateCount is the number of training positions tagged tag; 0 if unseen.
func (m *Model) StateCount(tag string) int {
	idx, ok := m.stateIndex[tag]
	if !ok {
		return 0
	}
	return m.snapshot.States[idx].Count
}

// Sentences is the number of training sentences, empty ones included.
func (m *Model) Sentences() int {
	return m.snapshot.Sentences
}

func (m *Model) InitialDenominator() InitialDenominator {
	return m.snapshot.InitialDenominator
}

// TransitionDenominator is the mode transition rows were normalized with.
func (m *Model) TransitionDenominator() TransitionDenominator {
	return m.snapshot.TransitionDenominator
}
