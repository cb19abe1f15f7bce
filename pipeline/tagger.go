package pipeline

import (
	"sync"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/hmm"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

type Decoder interface {
	Decode(tokens []string) hmm.Decision
}

type sentenceJob struct {
	index  int
	tokens []string
}

// NewSentenceTagger decodes sentences on up to workers goroutines and
// returns the results in input order. Tokens spelled like a punctuation tag
// are not decoded and are tagged with themselves.
func NewSentenceTagger(model Decoder, filter *preprocess.Filter, workers int) func(sentences [][]string) []types.SentenceResult {
	if filter == nil {
		filter = preprocess.New()
	}
	if workers <= 0 {
		workers = types.DefaultWorkers
	}

	return func(sentences [][]string) []types.SentenceResult {
		results := make([]types.SentenceResult, len(sentences))
		jobs := make(chan sentenceJob)

		var wg sync.WaitGroup
		for w := 0; w < workers && w < len(sentences); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range jobs {
					results[job.index] = tagSentence(model, filter, job.tokens)
				}
			}()
		}
		for i, tokens := range sentences {
			jobs <- sentenceJob{index: i, tokens: tokens}
		}
		close(jobs)
		wg.Wait()
		return results
	}
}

func tagSentence(model Decoder, filter *preprocess.Filter, tokens []string) types.SentenceResult {
	res := types.SentenceResult{Tokens: tokens}

	words := make([]string, 0, len(tokens))
	wordsIndex := make([]int, 0, len(tokens))
	for i, token := range tokens {
		if filter.IsPunctuationToken(token) {
			continue
		}
		words = append(words, token)
		wordsIndex = append(wordsIndex, i)
	}

	decision := model.Decode(words)
	if decision.Declined {
		res.Declined = true
		return res
	}

	res.Tags = make([]string, len(tokens))
	copy(res.Tags, tokens)
	for i, tag := range decision.Tags {
		res.Tags[wordsIndex[i]] = tag
	}
	res.Probability = decision.Probability
	res.SetLogProbability(decision.LogProbability)
	return res
}
