package hmm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/utils"
)

const SnapshotVersion = 1

type StateCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Snapshot holds the raw counts a Model was normalized from. States keep
// their enumeration order.
type Snapshot struct {
	Version               int                       `json:"version"`
	InitialDenominator    InitialDenominator        `json:"initial_denominator"`
	TransitionDenominator TransitionDenominator     `json:"transition_denominator"`
	Sentences             int                       `json:"sentences"`
	Contributing          int                       `json:"contributing"`
	States                []StateCount              `json:"states"`
	Initial               map[string]int            `json:"initial"`
	Transitions           map[string]map[string]int `json:"transitions"`
	Emissions             map[string]map[string]int `json:"emissions"`
}

func (snap Snapshot) validate() error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	switch snap.InitialDenominator {
	case DenominatorAllSentences, DenominatorContributing:
	default:
		return fmt.Errorf("unknown initial denominator %q", snap.InitialDenominator)
	}
	switch snap.TransitionDenominator {
	case TransitionsOutgoing, TransitionsStateOccurrences:
	default:
		return fmt.Errorf("unknown transition denominator %q", snap.TransitionDenominator)
	}
	if len(snap.States) == 0 || snap.Contributing == 0 {
		return ErrEmptyModel
	}
	if snap.Sentences < snap.Contributing {
		return fmt.Errorf("%d sentences cannot have %d contributing", snap.Sentences, snap.Contributing)
	}

	known := make(map[string]bool, len(snap.States))
	for _, state := range snap.States {
		if state.Count <= 0 {
			return fmt.Errorf("state %q has count %d", state.Tag, state.Count)
		}
		if known[state.Tag] {
			return fmt.Errorf("state %q listed twice", state.Tag)
		}
		known[state.Tag] = true
	}
	for tag := range snap.Initial {
		if !known[tag] {
			return fmt.Errorf("initial count for unknown state %q", tag)
		}
	}
	for from, row := range snap.Transitions {
		if !known[from] {
			return fmt.Errorf("transition from unknown state %q", from)
		}
		for to := range row {
			if !known[to] {
				return fmt.Errorf("transition to unknown state %q", to)
			}
		}
	}
	for tag := range snap.Emissions {
		if !known[tag] {
			return fmt.Errorf("emission of unknown state %q", tag)
		}
	}
	return nil
}

// FromSnapshot rebuilds a model, normalizing the counts the same way
// Builder.Build does.
func FromSnapshot(snap Snapshot) (*Model, error) {
	if err := snap.validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return newModel(snap)
}

// Snapshot returns a deep copy of the counts of the model.
func (m *Model) Snapshot() Snapshot {
	snap := m.snapshot
	snap.States = append([]StateCount(nil), m.snapshot.States...)
	snap.Initial = make(map[string]int, len(m.snapshot.Initial))
	for tag, count := range m.snapshot.Initial {
		snap.Initial[tag] = count
	}
	snap.Transitions = copyTable(m.snapshot.Transitions)
	snap.Emissions = copyTable(m.snapshot.Emissions)
	return snap
}

func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.snapshot)
}

// Fingerprint identifies the model by the murmur3 hash of its counts.
func (m *Model) Fingerprint() uint64 {
	return m.fingerprint
}

func fingerprint(snap Snapshot) uint64 {
	// encoding/json sorts map keys, so equal counts give equal bytes
	buf, err := json.Marshal(snap)
	if err != nil {
		panic(err)
	}
	return utils.HashBytes(buf)
}

func LoadModel(buf []byte) (*Model, error) {
	var snap Snapshot
	if err := json.Unmarshal(buf, &snap); err != nil {
		return nil, err
	}
	return FromSnapshot(snap)
}

func LoadModelFromFile(modelFilePath string) (*Model, error) {
	buf, err := os.ReadFile(modelFilePath)
	if err != nil {
		return nil, err
	}
	return LoadModel(buf)
}

func (m *Model) SaveToFile(modelFilePath string) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(modelFilePath, buf, 0o644)
}
