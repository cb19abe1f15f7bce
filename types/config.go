package types

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"gopkg.in/yaml.v3"
)

const (
	// corpus sources
	CorpusSourceFile = "file"
	CorpusSourceS3   = "s3"

	// initial distribution denominators
	DenominatorAllSentences = "all_sentences"
	DenominatorContributing = "contributing"

	// transition row denominators
	TransitionsOutgoing         = "outgoing"
	TransitionsStateOccurrences = "state_occurrences"

	DefaultWorkers = 4
)

// Configuration is one tagger profile: a corpus to train on and the knobs
// of the model trained from it.
type Configuration struct {
	Name                  string   `yaml:"-" json:"name"`
	FilePath              string   `yaml:"-" json:"file_path"`
	TrainCorpus           string   `yaml:"train_corpus" json:"train_corpus"`
	TestCorpus            string   `yaml:"test_corpus" json:"test_corpus"`
	CorpusSource          string   `yaml:"corpus_source" json:"corpus_source"`
	PunctuationTags       []string `yaml:"punctuation_tags" json:"punctuation_tags"`
	PunctuationTagsFile   string   `yaml:"punctuation_tags_file" json:"punctuation_tags_file"`
	InitialDenominator    string   `yaml:"initial_denominator" json:"initial_denominator"`
	TransitionDenominator string   `yaml:"transition_denominator" json:"transition_denominator"`
	Workers               int      `yaml:"workers" json:"workers"`
}

// ApplyDefaults fills fields left empty in the yaml file.
func (cfg *Configuration) ApplyDefaults() {
	if cfg.CorpusSource == "" {
		cfg.CorpusSource = CorpusSourceFile
	}
	if cfg.InitialDenominator == "" {
		cfg.InitialDenominator = DenominatorAllSentences
	}
	if cfg.TransitionDenominator == "" {
		cfg.TransitionDenominator = TransitionsStateOccurrences
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
}

func (cfg Configuration) Validate() error {
	if len(cfg.TrainCorpus) == 0 {
		return fmt.Errorf("configuration %q: train_corpus is required", cfg.Name)
	}
	switch cfg.CorpusSource {
	case CorpusSourceFile, CorpusSourceS3:
	default:
		return fmt.Errorf("configuration %q: wrong corpus source %q", cfg.Name, cfg.CorpusSource)
	}
	switch cfg.InitialDenominator {
	case DenominatorAllSentences, DenominatorContributing:
	default:
		return fmt.Errorf("configuration %q: wrong initial denominator %q", cfg.Name, cfg.InitialDenominator)
	}
	switch cfg.TransitionDenominator {
	case TransitionsOutgoing, TransitionsStateOccurrences:
	default:
		return fmt.Errorf("configuration %q: wrong transition denominator %q", cfg.Name, cfg.TransitionDenominator)
	}
	return nil
}

func ParseConfiguration(name string, buf []byte) (Configuration, error) {
	cfg := Configuration{Name: name}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("configuration %q: %w", name, err)
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// LoadConfigurations reads every *.yaml file of dirPath. Broken files are
// logged and skipped. Profiles are returned sorted by name.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	posLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			filePath := path.Join(dirPath, file.Name())
			buf, err := os.ReadFile(filePath)
			if err != nil {
				posLogger.Err(err).Str("file_path", filePath).Msg("Could not read configuration")
				return
			}
			cfg, err := ParseConfiguration(strings.TrimSuffix(file.Name(), ".yaml"), buf)
			if err != nil {
				posLogger.Err(err).Str("file_path", filePath).Msg("Skipping invalid configuration")
				return
			}
			cfg.FilePath = filePath
			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs, nil
}
