package types

import "math"

type SentenceResult struct {
	Tokens         []string `json:"tokens"`
	Tags           []string `json:"tags"`
	Declined       bool     `json:"declined"`
	Probability    float64  `json:"probability"`
	LogProbability *float64 `json:"log_probability"`
}

// SetLogProbability stores lp unless it is -Inf, which JSON cannot carry.
func (res *SentenceResult) SetLogProbability(lp float64) {
	if math.IsInf(lp, 0) || math.IsNaN(lp) {
		res.LogProbability = nil
		return
	}
	res.LogProbability = &lp
}

type TaggingResponse struct {
	DocID     string           `json:"docId"`
	Profile   string           `json:"profile"`
	Sentences []SentenceResult `json:"sentences"`
}

type ScorePair struct {
	Accuracy    float64 `json:"accuracy"`
	OOVAccuracy float64 `json:"oov_accuracy"`
}

type EvaluationReport struct {
	Profile  string    `json:"profile"`
	HMM      ScorePair `json:"hmm"`
	Baseline ScorePair `json:"baseline"`
	Declined int       `json:"declined"`
	Decoded  int       `json:"decoded"`
}
