package eval

import (
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/baseline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

// Report scores tagger against the most-frequent-tag baseline trained on
// the same corpus. The baseline sees the corpora unfiltered.
func Report(profile string, tagger Tagger, filter *preprocess.Filter, train []types.LabeledSentence, test []types.LabeledSentence, opts ...Option) types.EvaluationReport {
	res := Evaluate(tagger, test, filter, opts...)

	accuracy, oovAccuracy := baseline.Train(train).Test(test)
	return types.EvaluationReport{
		Profile:  profile,
		HMM:      res.Scores(),
		Baseline: types.ScorePair{Accuracy: accuracy, OOVAccuracy: oovAccuracy},
		Declined: res.Declined,
		Decoded:  res.Sentences,
	}
}
