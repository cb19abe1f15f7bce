package types

// LabeledSentence is a sentence of parallel token and gold tag sequences.
// Position i of Tags labels position i of Tokens.
type LabeledSentence struct {
	Tokens []string `json:"tokens"`
	Tags   []string `json:"tags"`
}

func NewLabeledSentence(tokens []string, tags []string) LabeledSentence {
	return LabeledSentence{Tokens: tokens, Tags: tags}
}

func (sent LabeledSentence) Len() int {
	return len(sent.Tags)
}

func (sent LabeledSentence) IsEmpty() bool {
	return len(sent.Tokens) == 0 && len(sent.Tags) == 0
}

// Aligned reports whether every tag has exactly one token.
func (sent LabeledSentence) Aligned() bool {
	return len(sent.Tokens) == len(sent.Tags)
}
