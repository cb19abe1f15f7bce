package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/corpus"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/hmm"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
)

var ErrUnknownProfile = errors.New("unknown tagger profile")

// Profile is a trained model together with the configuration and the
// filter it was trained with.
type Profile struct {
	Config types.Configuration
	Model  *hmm.Model
	Filter *preprocess.Filter
}

type Tagging struct {
	profiles       map[string]*Profile
	taggers        map[string]func([][]string) []types.SentenceResult
	defaultProfile string
}

// NewTagging serves the given profiles. Requests without a profile use
// defaultProfile, or the first profile by name when it is empty.
func NewTagging(profiles map[string]*Profile, defaultProfile string) (*Tagging, error) {
	if len(profiles) == 0 {
		return nil, errors.New("no tagger profiles loaded")
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	if defaultProfile == "" {
		defaultProfile = names[0]
	}
	if _, ok := profiles[defaultProfile]; !ok {
		return nil, fmt.Errorf("default profile %q: %w", defaultProfile, ErrUnknownProfile)
	}

	taggers := make(map[string]func([][]string) []types.SentenceResult, len(profiles))
	for name, profile := range profiles {
		taggers[name] = NewSentenceTagger(profile.Model, profile.Filter, profile.Config.Workers)
	}
	return &Tagging{
		profiles:       profiles,
		taggers:        taggers,
		defaultProfile: defaultProfile,
	}, nil
}

// Has reports whether a request for profile can be served.
func (tagging *Tagging) Has(profile string) bool {
	if profile == "" {
		return true
	}
	_, ok := tagging.profiles[profile]
	return ok
}

func (tagging *Tagging) Profiles() []string {
	names := make([]string, 0, len(tagging.profiles))
	for name := range tagging.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tag splits text into one sentence per line and tags every sentence.
func (tagging *Tagging) Tag(request Request) (*types.TaggingResponse, error) {
	name := request.Profile
	if name == "" {
		name = tagging.defaultProfile
	}
	tagger, ok := tagging.taggers[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
	}
	sentences, err := corpus.ReadTokens(strings.NewReader(request.Text))
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return &types.TaggingResponse{
		DocID:     request.Tid,
		Profile:   name,
		Sentences: tagger(sentences),
	}, nil
}

// Pipeline adapts Tag to the channel based Pipeline.
func (tagging *Tagging) Pipeline() Pipeline {
	posLogger := logger.NewLogger("Tagging pipeline")

	return func(request Request) <-chan string {
		responseChan := make(chan string, 1)
		pplnLog := posLogger.With().Str("tid", request.Tid).Logger()
		errLogger := pplnLog.With().Caller().Logger()
		pplnLog.Info().Str("profile", request.Profile).Msg("Started tagging pipeline")

		go func() {
			defer close(responseChan)
			response, err := tagging.Tag(request)
			if err != nil {
				errLogger.Err(err).Msg("Failed to tag request")
				return
			}
			buf, err := json.Marshal(response)
			if err != nil {
				errLogger.Err(err).Msg("Failed to marshall response")
				return
			}
			pplnLog.Info().Int("sentences", len(response.Sentences)).Msg("Finished tagging pipeline")
			responseChan <- string(buf)
		}()
		return responseChan
	}
}
