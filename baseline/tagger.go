package baseline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

type tagCount struct {
	tag   string
	count int
}

// Tagger assigns every known word the tag it carried most often in
// training. It sees the corpus unfiltered, punctuation included.
type Tagger struct {
	words map[string][]tagCount
	best  map[string]string
}

func Train(sentences []types.LabeledSentence) *Tagger {
	words := make(map[string][]tagCount)
	for _, sent := range sentences {
		for i := 0; i < len(sent.Tokens) && i < len(sent.Tags); i++ {
			words[sent.Tokens[i]] = addTag(words[sent.Tokens[i]], sent.Tags[i])
		}
	}

	best := make(map[string]string, len(words))
	for word, counts := range words {
		// ties go to the tag seen first for the word
		top := counts[0]
		for _, c := range counts[1:] {
			if c.count > top.count {
				top = c
			}
		}
		best[word] = top.tag
	}
	return &Tagger{words: words, best: best}
}

func addTag(counts []tagCount, tag string) []tagCount {
	for i := range counts {
		if counts[i].tag == tag {
			counts[i].count++
			return counts
		}
	}
	return append(counts, tagCount{tag: tag, count: 1})
}

// Lookup returns the most frequent tag of token.
func (t *Tagger) Lookup(token string) (string, bool) {
	tag, ok := t.best[token]
	return tag, ok
}

func (t *Tagger) InVocabulary(token string) bool {
	_, ok := t.best[token]
	return ok
}

// Guess returns the candidate tags for the unknown word at position i.
// A guess is right when it contains the gold tag.
func (t *Tagger) Guess(tokens []string, i int) []string {
	word := tokens[i]
	first, _ := utf8.DecodeRuneInString(word)
	switch {
	case unicode.IsUpper(first):
		return []string{"NNP", "NNPS"}
	case strings.HasSuffix(word, "ed"):
		return []string{"VBD", "VBN"}
	case strings.HasSuffix(word, "ly"):
		return []string{"RB", "RBR", "RBS"}
	}

	next := i + 1
	if next > len(tokens)-1 {
		next = len(tokens) - 1
	}
	if tag, _ := t.Lookup(tokens[next]); tag == "NN" {
		if i+1 > len(tokens)-1 {
			return []string{"NN"}
		}
		return []string{"JJ", "JJR", "JJS"}
	}
	return []string{"NN"}
}

// Test scores the tagger on a labeled corpus and returns the accuracy over
// all tokens and over the tokens unseen in training.
func (t *Tagger) Test(sentences []types.LabeledSentence) (float64, float64) {
	total, correct, oov, oovCorrect := 0, 0, 0, 0
	for _, sent := range sentences {
		for i := 0; i < len(sent.Tokens) && i < len(sent.Tags); i++ {
			total++
			gold := sent.Tags[i]
			if tag, ok := t.Lookup(sent.Tokens[i]); ok {
				if tag == gold {
					correct++
				}
				continue
			}

			oov++
			if contains(t.Guess(sent.Tokens, i), gold) {
				correct++
				oovCorrect++
			}
		}
	}
	return ratio(correct, total), ratio(oovCorrect, oov)
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
