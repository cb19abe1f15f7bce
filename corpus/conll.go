package corpus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/utils"
)

// ErrMalformedLine is returned for a non-blank line without a tag column.
var ErrMalformedLine = errors.New("malformed corpus line")

const maxLineLength = 1024 * 1024

// scanSentences reads CoNLL-2000 style data: one "token POS [chunk ...]" line
// per token and a blank line after every sentence. Only the first two
// columns are used. emit returns false to stop reading.
func scanSentences(reader io.Reader, emit func(types.LabeledSentence) bool) error {
	store := utils.GlobalStringStore()
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var sent types.LabeledSentence
	flush := func() bool {
		if sent.IsEmpty() {
			return true
		}
		ok := emit(sent)
		sent = types.LabeledSentence{}
		return ok
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			if !flush() {
				return nil
			}
			continue
		}
		if len(fields) < 2 {
			return fmt.Errorf("line %d %q: %w", lineNum, scanner.Text(), ErrMalformedLine)
		}
		sent.Tokens = append(sent.Tokens, fields[0])
		sent.Tags = append(sent.Tags, store.Intern(fields[1]))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

func Read(reader io.Reader) ([]types.LabeledSentence, error) {
	var sentences []types.LabeledSentence
	err := scanSentences(reader, func(sent types.LabeledSentence) bool {
		sentences = append(sentences, sent)
		return true
	})
	if err != nil {
		return nil, err
	}
	return sentences, nil
}

func ReadFile(filePath string) ([]types.LabeledSentence, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file)
}

// Stream sends sentences as they are read. Both channels are closed when
// reading ends; the error channel carries at most one error.
func Stream(ctx context.Context, reader io.Reader) (<-chan types.LabeledSentence, <-chan error) {
	out := make(chan types.LabeledSentence)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)
		err := scanSentences(reader, func(sent types.LabeledSentence) bool {
			select {
			case out <- sent:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			errCh <- err
		}
	}()
	return out, errCh
}

// ReadTokens reads decoder input: one sentence per line, tokens separated
// by whitespace. Blank lines are skipped.
func ReadTokens(reader io.Reader) ([][]string, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var sentences [][]string
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		sentences = append(sentences, tokens)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}
