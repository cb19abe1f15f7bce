package preprocess

import (
	"sort"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

// asciiPunctuation is every ASCII punctuation character. Each one is
// filtered when it appears as a tag on its own.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// PunctuationTags are the multi-character punctuation tags of the Penn
// Treebank tag set: currency, quotes, brackets, colon and back-quote.
var PunctuationTags = []string{"$", "''", "(", ")", ":", "``"}

// Filter drops the positions of a labeled sentence whose tag is a
// punctuation tag. The zero value is not usable, use New.
type Filter struct {
	tags map[string]bool
}

// DefaultTags returns the default punctuation set, sorted: every ASCII
// punctuation character plus PunctuationTags.
func DefaultTags() []string {
	set := make(map[string]bool, len(asciiPunctuation)+len(PunctuationTags))
	for _, r := range asciiPunctuation {
		set[string(r)] = true
	}
	for _, tag := range PunctuationTags {
		set[tag] = true
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// New builds a filter for the given tags. Without tags DefaultTags is used.
func New(tags ...string) *Filter {
	if len(tags) == 0 {
		tags = DefaultTags()
	}
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	return &Filter{tags: set}
}

func (f *Filter) IsPunctuation(tag string) bool {
	return f.tags[tag]
}

// IsPunctuationToken reports whether token is spelled like a filtered tag.
// Penn Treebank tags punctuation marks with the mark itself, so such tokens
// never reach the model and are tagged with themselves.
func (f *Filter) IsPunctuationToken(token string) bool {
	return f.tags[token]
}

// Tags returns the size of the filtered tag set.
func (f *Filter) Tags() int {
	return len(f.tags)
}

// Apply returns a new sentence without punctuation positions. The input is
// not modified. Tags past the end of Tokens are kept without a token, so a
// misaligned input stays misaligned.
func (f *Filter) Apply(sent types.LabeledSentence) types.LabeledSentence {
	tokens := make([]string, 0, len(sent.Tokens))
	tags := make([]string, 0, len(sent.Tags))
	for i, tag := range sent.Tags {
		if f.tags[tag] {
			continue
		}
		if i < len(sent.Tokens) {
			tokens = append(tokens, sent.Tokens[i])
		}
		tags = append(tags, tag)
	}
	return types.LabeledSentence{Tokens: tokens, Tags: tags}
}
