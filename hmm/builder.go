package hmm

import (
	"context"
	"errors"
	"fmt"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

var (
	// ErrConsistencyViolation means the preprocessor returned token and tag
	// sequences of different length for one sentence.
	ErrConsistencyViolation = errors.New("preprocessed tokens and tags differ in length")
	// ErrEmptyModel means no sentence survived preprocessing.
	ErrEmptyModel = errors.New("no sentence contributed to the model")
)

// InitialDenominator selects what the sentence-initial tag counts are
// divided by.
type InitialDenominator string

const (
	// DenominatorAllSentences divides by every sentence fed to the builder,
	// including sentences that were empty after preprocessing. The initial
	// distribution then sums to less than 1 when such sentences exist.
	DenominatorAllSentences InitialDenominator = "all_sentences"
	// DenominatorContributing divides by the sentences that produced an
	// initial tag.
	DenominatorContributing InitialDenominator = "contributing"
)

// TransitionDenominator selects what transition counts are divided by.
type TransitionDenominator string

const (
	// TransitionsStateOccurrences divides by every occurrence of the source
	// tag, sentence-final ones included. A row sums to less than 1 when the
	// tag ever ends a sentence.
	TransitionsStateOccurrences TransitionDenominator = "state_occurrences"
	// TransitionsOutgoing divides by the number of positions where the
	// source tag precedes another tag, so every row sums to 1.
	TransitionsOutgoing TransitionDenominator = "outgoing"
)

type options struct {
	initial    InitialDenominator
	transition TransitionDenominator
}

type Option func(*options)

func WithInitialDenominator(d InitialDenominator) Option {
	return func(o *options) {
		o.initial = d
	}
}

func WithTransitionDenominator(d TransitionDenominator) Option {
	return func(o *options) {
		o.transition = d
	}
}

func newOptions(opts []Option) options {
	o := options{
		initial:    DenominatorAllSentences,
		transition: TransitionsStateOccurrences,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Builder accumulates raw counts over a stream of labeled sentences.
// A Builder is not safe for concurrent use.
type Builder struct {
	filter  *preprocess.Filter
	options options

	states      []string
	stateIndex  map[string]int
	stateCounts []int
	initial     map[string]int
	transitions map[string]map[string]int
	emissions   map[string]map[string]int

	sentences    int
	contributing int
}

func NewBuilder(filter *preprocess.Filter, opts ...Option) *Builder {
	if filter == nil {
		filter = preprocess.New()
	}
	return &Builder{
		filter:      filter,
		options:     newOptions(opts),
		stateIndex:  make(map[string]int),
		initial:     make(map[string]int),
		transitions: make(map[string]map[string]int),
		emissions:   make(map[string]map[string]int),
	}
}

// Add preprocesses one sentence and accumulates its counts.
func (b *Builder) Add(sentence types.LabeledSentence) error {
	sent := b.filter.Apply(sentence)
	if !sent.Aligned() {
		return fmt.Errorf("sentence #%d: %d tokens, %d tags: %w",
			b.sentences, len(sent.Tokens), len(sent.Tags), ErrConsistencyViolation)
	}

	b.sentences++
	n := len(sent.Tags)
	if n == 0 {
		return nil
	}
	b.contributing++
	b.initial[sent.Tags[0]]++

	for i := 0; i < n-1; i++ {
		b.observe(sent.Tags[i], sent.Tokens[i])
		inc(b.transitions, sent.Tags[i], sent.Tags[i+1])
	}
	b.observe(sent.Tags[n-1], sent.Tokens[n-1])
	return nil
}

func (b *Builder) observe(tag string, token string) {
	idx, ok := b.stateIndex[tag]
	if !ok {
		idx = len(b.states)
		b.stateIndex[tag] = idx
		b.states = append(b.states, tag)
		b.stateCounts = append(b.stateCounts, 0)
	}
	b.stateCounts[idx]++
	inc(b.emissions, tag, token)
}

func inc(table map[string]map[string]int, outer string, inner string) {
	row, ok := table[outer]
	if !ok {
		row = make(map[string]int)
		table[outer] = row
	}
	row[inner]++
}

// Sentences is the number of sentences fed so far, empty ones included.
func (b *Builder) Sentences() int {
	return b.sentences
}

// Build normalizes the accumulated counts into an immutable Model. The
// builder can keep accumulating afterwards; the returned model does not
// share memory with it.
func (b *Builder) Build() (*Model, error) {
	if b.contributing == 0 {
		return nil, ErrEmptyModel
	}
	return newModel(b.snapshot())
}

func (b *Builder) snapshot() Snapshot {
	snap := Snapshot{
		Version:               SnapshotVersion,
		InitialDenominator:    b.options.initial,
		TransitionDenominator: b.options.transition,
		Sentences:             b.sentences,
		Contributing:          b.contributing,
		States:                make([]StateCount, len(b.states)),
		Initial:               make(map[string]int, len(b.initial)),
		Transitions:           copyTable(b.transitions),
		Emissions:             copyTable(b.emissions),
	}
	for i, tag := range b.states {
		snap.States[i] = StateCount{Tag: tag, Count: b.stateCounts[i]}
	}
	for tag, count := range b.initial {
		snap.Initial[tag] = count
	}
	return snap
}

func copyTable(table map[string]map[string]int) map[string]map[string]int {
	res := make(map[string]map[string]int, len(table))
	for outer, row := range table {
		cp := make(map[string]int, len(row))
		for inner, count := range row {
			cp[inner] = count
		}
		res[outer] = cp
	}
	return res
}

// Train builds a model from a materialized corpus in one pass.
func Train(sentences []types.LabeledSentence, filter *preprocess.Filter, opts ...Option) (*Model, error) {
	builder := NewBuilder(filter, opts...)
	for _, sent := range sentences {
		if err := builder.Add(sent); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

// TrainChannel builds a model from a streamed corpus. It returns once in is
// closed or ctx is done.
func TrainChannel(ctx context.Context, in <-chan types.LabeledSentence, filter *preprocess.Filter, opts ...Option) (*Model, error) {
	builder := NewBuilder(filter, opts...)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sent, ok := <-in:
			if !ok {
				return builder.Build()
			}
			if err := builder.Add(sent); err != nil {
				return nil, err
			}
		}
	}
}
