package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/corpus"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/hmm"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/preprocess"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/redis"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/utils"
)

const ModelsDB redis.DB = 1

// ModelCache keeps model snapshots between restarts. *redis.Client
// implements it.
type ModelCache interface {
	GetBytes(key string) ([]byte, error)
	SetBytes(key string, value []byte, expiration time.Duration) error
	Lock(key string) (redis.ReleaseLock, error)
}

// ObjectStore holds remote corpora and published models. *s3client.Client
// implements it.
type ObjectStore interface {
	Upload(data []byte, key string) error
	Download(key string) ([]byte, error)
}

type LoaderParams struct {
	Configurations []types.Configuration
	// CorpusDir resolves relative file corpora and tag files.
	CorpusDir string
	// Cache and Storage are optional. Storage is required by s3 corpora.
	Cache   ModelCache
	Storage ObjectStore
	// Retrain skips the cache lookup but still refreshes it.
	Retrain bool
}

// ModelKey is the object key a trained profile is published under.
func ModelKey(profile string) string {
	return path.Join("models", fmt.Sprintf("%s.json", profile))
}

// CacheKey changes whenever anything the model depends on changes.
func CacheKey(cfg types.Configuration, punctuation []string) string {
	hash := utils.HashKey(
		cfg.Name,
		cfg.CorpusSource,
		cfg.TrainCorpus,
		cfg.InitialDenominator,
		cfg.TransitionDenominator,
		strings.Join(punctuation, " "),
		strconv.Itoa(hmm.SnapshotVersion),
	)
	return fmt.Sprintf("models:%s:%x", cfg.Name, hash)
}

// LoadModels trains or fetches from the cache one model per configuration.
// Profiles are loaded concurrently; the first error is returned.
func LoadModels(ctx context.Context, params LoaderParams) (map[string]*Profile, error) {
	posLogger := logger.NewLogger("LoadModels")

	type loaded struct {
		profile *Profile
		err     error
	}
	var wg sync.WaitGroup
	results := make(chan loaded, len(params.Configurations))
	for _, cfg := range params.Configurations {
		wg.Add(1)
		go func(cfg types.Configuration) {
			defer wg.Done()
			profile, err := loadProfile(ctx, params, cfg)
			if err != nil {
				err = fmt.Errorf("profile %q: %w", cfg.Name, err)
			}
			results <- loaded{profile, err}
		}(cfg)
	}
	wg.Wait()
	close(results)

	profiles := make(map[string]*Profile, len(params.Configurations))
	var firstErr error
	for res := range results {
		if res.err != nil {
			posLogger.Err(res.err).Msg("Failed to load profile")
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		profiles[res.profile.Config.Name] = res.profile
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return profiles, nil
}

func loadProfile(ctx context.Context, params LoaderParams, cfg types.Configuration) (*Profile, error) {
	profileLogger := logger.NewLogger("LoadModels").With().Str("profile", cfg.Name).Logger()

	punctuation, err := punctuationTags(cfg, params.CorpusDir)
	if err != nil {
		return nil, err
	}
	profile := &Profile{Config: cfg, Filter: preprocess.New(punctuation...)}
	key := CacheKey(cfg, punctuation)

	if params.Cache != nil && !params.Retrain {
		if profile.Model, err = cachedModel(params.Cache, key); err == nil {
			profileLogger.Info().Str("key", key).Msg("Model loaded from cache")
			return profile, nil
		}
		if !errors.Is(err, redis.ErrNotFound) {
			profileLogger.Warn().Err(err).Msg("Could not read cached model")
		}
	}

	if params.Cache != nil {
		release, err := params.Cache.Lock(key)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil {
				profileLogger.Warn().Err(err).Msg("Failed to release model lock")
			}
		}()
		// another instance may have trained it while we waited
		if !params.Retrain {
			if profile.Model, err = cachedModel(params.Cache, key); err == nil {
				profileLogger.Info().Str("key", key).Msg("Model loaded from cache")
				return profile, nil
			}
		}
	}

	start := time.Now()
	profile.Model, err = trainModel(ctx, params, cfg, profile.Filter)
	if err != nil {
		return nil, err
	}
	profileLogger.Info().
		Int("sentences", profile.Model.Sentences()).
		Int("states", len(profile.Model.States())).
		Int("vocabulary", profile.Model.VocabularySize()).
		Dur("elapsed", time.Since(start)).
		Msg("Model trained")

	buf, err := json.Marshal(profile.Model)
	if err != nil {
		return nil, err
	}
	if params.Cache != nil {
		if err = params.Cache.SetBytes(key, buf, 0); err != nil {
			profileLogger.Warn().Err(err).Msg("Could not cache model")
		}
	}
	if params.Storage != nil {
		if err = params.Storage.Upload(buf, ModelKey(cfg.Name)); err != nil {
			profileLogger.Warn().Err(err).Msg("Could not publish model")
		}
	}
	return profile, nil
}

func cachedModel(cache ModelCache, key string) (*hmm.Model, error) {
	buf, err := cache.GetBytes(key)
	if err != nil {
		return nil, err
	}
	return hmm.LoadModel(buf)
}

func trainModel(ctx context.Context, params LoaderParams, cfg types.Configuration, filter *preprocess.Filter) (*hmm.Model, error) {
	reader, err := OpenCorpus(params, cfg.CorpusSource, cfg.TrainCorpus)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	streamCtx, cancel := context.WithCancel(ctx)
	sentences, readErrCh := corpus.Stream(streamCtx, reader)
	model, err := hmm.TrainChannel(ctx, sentences, filter,
		hmm.WithInitialDenominator(hmm.InitialDenominator(cfg.InitialDenominator)),
		hmm.WithTransitionDenominator(hmm.TransitionDenominator(cfg.TransitionDenominator)),
	)
	// stops the reader when training gave up early
	cancel()
	if readErr := <-readErrCh; readErr != nil && !errors.Is(readErr, context.Canceled) {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.TrainCorpus, readErr)
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

// OpenCorpus opens a corpus from the local directory or the object store.
func OpenCorpus(params LoaderParams, source string, key string) (io.ReadCloser, error) {
	switch source {
	case types.CorpusSourceS3:
		if params.Storage == nil {
			return nil, fmt.Errorf("corpus %s: no object store configured", key)
		}
		buf, err := params.Storage.Download(key)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(buf)), nil
	default:
		file, err := os.Open(resolve(params.CorpusDir, key))
		if err != nil {
			return nil, err
		}
		return file, nil
	}
}

// ReadCorpus loads a whole labeled corpus into memory.
func ReadCorpus(params LoaderParams, source string, key string) ([]types.LabeledSentence, error) {
	reader, err := OpenCorpus(params, source, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return corpus.Read(reader)
}

// punctuationTags is the filter set of a profile: punctuation_tags, or the
// default set when it is empty, plus the tags of punctuation_tags_file.
func punctuationTags(cfg types.Configuration, dir string) ([]string, error) {
	base := cfg.PunctuationTags
	if len(base) == 0 {
		base = preprocess.DefaultTags()
	}
	set := make(map[string]bool, len(base))
	for _, tag := range base {
		set[tag] = true
	}
	if cfg.PunctuationTagsFile != "" {
		extra, err := utils.ReadSet(resolve(dir, cfg.PunctuationTagsFile))
		if err != nil {
			return nil, err
		}
		for tag := range extra {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func resolve(dir string, filePath string) string {
	if filepath.IsAbs(filePath) || dir == "" {
		return filePath
	}
	return filepath.Join(dir, filePath)
}
