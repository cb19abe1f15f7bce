package eval

import (
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/hmm"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

// Tagger is implemented by *hmm.Model.
type Tagger interface {
	Decode(tokens []string) hmm.Decision
}

// Vocabulary is checked on the tagger to count out-of-vocabulary tokens.
type Vocabulary interface {
	InVocabulary(token string) bool
}

// Result holds the counters of one evaluation run. Sentences counts the
// decoded sentences only; empty and declined ones are left out of every
// token counter.
type Result struct {
	Sentences  int `json:"sentences"`
	Declined   int `json:"declined"`
	Tokens     int `json:"tokens"`
	Correct    int `json:"correct"`
	OOVTokens  int `json:"oovTokens"`
	OOVCorrect int `json:"oovCorrect"`
}

func (r Result) Accuracy() float64 {
	return ratio(r.Correct, r.Tokens)
}

func (r Result) OOVAccuracy() float64 {
	return ratio(r.OOVCorrect, r.OOVTokens)
}

// Scores returns the result in the same shape as the baseline tagger.
func (r Result) Scores() types.ScorePair {
	return types.ScorePair{Accuracy: r.Accuracy(), OOVAccuracy: r.OOVAccuracy()}
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

type options struct {
	limit    int
	observer func(predicted []string, gold []string)
}

type Option func(*options)

// WithLimit stops the run after n decoded sentences. n <= 0 means no limit.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithObserver receives the predicted and gold tags of every decoded
// sentence.
func WithObserver(observer func(predicted []string, gold []string)) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// Evaluate preprocesses every sentence with filter, decodes it and compares
// the result with the gold tags position by position.
func Evaluate(tagger Tagger, sentences []types.LabeledSentence, filter *preprocess.Filter, opts ...Option) Result {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if filter == nil {
		filter = preprocess.New()
	}
	vocab, _ := tagger.(Vocabulary)

	var res Result
	for _, sentence := range sentences {
		if o.limit > 0 && res.Sentences >= o.limit {
			break
		}
		sent := filter.Apply(sentence)
		if sent.IsEmpty() || !sent.Aligned() {
			continue
		}

		decision := tagger.Decode(sent.Tokens)
		if decision.Declined {
			res.Declined++
			continue
		}
		res.Sentences++

		for i, gold := range sent.Tags {
			hit := decision.Tags[i] == gold
			res.Tokens++
			if hit {
				res.Correct++
			}
			if vocab != nil && !vocab.InVocabulary(sent.Tokens[i]) {
				res.OOVTokens++
				if hit {
					res.OOVCorrect++
				}
			}
		}
		if o.observer != nil {
			o.observer(decision.Tags, sent.Tags)
		}
	}
	return res
}
