package hmm

import "math"

// Decision is the outcome of decoding one token sequence. A declined
// decision carries no tags and no probability.
type Decision struct {
	Declined       bool
	Probability    float64
	LogProbability float64
	Tags           []string
}

var declined = Decision{Declined: true, LogProbability: logZero}

// Decode returns the most probable tag sequence for tokens. Tokens must be
// preprocessed the same way the training corpus was.
//
// Decoding is declined when tokens is empty or its first token was never
// seen in training. A token seen only at the end of training sentences
// counts as seen, so it can start a decoded sequence. Later unseen tokens
// are not checked: they have emission probability 0 under every tag, so the
// path through them has probability 0 and its tags are only the tie-break
// result.
func (m *Model) Decode(tokens []string) Decision {
	if len(tokens) == 0 || !m.InVocabulary(tokens[0]) {
		return declined
	}

	size := len(m.states)
	n := len(tokens)
	delta := make([]float64, n*size)
	back := make([]int, n*size)

	emit := m.logEmit[tokens[0]]
	for s := 0; s < size; s++ {
		delta[s] = m.logInitial[s] + emit[s]
	}

	for i := 1; i < n; i++ {
		prev := delta[(i-1)*size : i*size]
		curr := delta[i*size : (i+1)*size]
		ptrs := back[i*size : (i+1)*size]
		emit, known := m.logEmit[tokens[i]]

		for s := 0; s < size; s++ {
			if !known || math.IsInf(emit[s], -1) {
				// every candidate scores zero, the first state wins
				curr[s] = logZero
				ptrs[s] = 0
				continue
			}
			arrival := m.logArrival[s*size : (s+1)*size]
			best, arg := prev[0]+arrival[0], 0
			for j := 1; j < size; j++ {
				if score := prev[j] + arrival[j]; score > best {
					best, arg = score, j
				}
			}
			curr[s] = best + emit[s]
			ptrs[s] = arg
		}
	}

	last := delta[(n-1)*size : n*size]
	best, arg := last[0], 0
	for s := 1; s < size; s++ {
		if last[s] > best {
			best, arg = last[s], s
		}
	}

	tags := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		tags[i] = m.states[arg]
		arg = back[i*size+arg]
	}

	return Decision{
		Probability:    math.Exp(best),
		LogProbability: best,
		Tags:           tags,
	}
}

// Tag is Decode without the probabilities.
func (m *Model) Tag(tokens []string) ([]string, bool) {
	decision := m.Decode(tokens)
	return decision.Tags, !decision.Declined
}
