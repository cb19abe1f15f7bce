package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/api"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/eval"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/redis"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/s3client"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/types"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/utils"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/worker"
)

type Config struct {
	ConfigPath     string `envconfig:"POS_CONFIG_PATH" required:"true"`
	CorpusDir      string `envconfig:"POS_CORPUS_DIR" default:""`
	DefaultProfile string `envconfig:"POS_DEFAULT_PROFILE" default:""`
	ModelCache     bool   `envconfig:"POS_MODEL_CACHE_ACTIVE" default:"false"`
	ObjectStore    bool   `envconfig:"POS_OBJECT_STORE_ACTIVE" default:"false"`
	WorkerActive   bool   `envconfig:"POS_WORKER_ACTIVE" default:"true"`
	RestAPIActive  bool   `envconfig:"POS_REST_API_ACTIVE" default:"false"`
	RestAPIPort    string `envconfig:"POS_REST_API_PORT" default:"10000"`
}

const modelsLoadMaxRetries = 5

func main() {
	logger.SetupLogging()
	posLogger := logger.NewLogger("Main")
	fatalErrLogger := posLogger.Fatal().Caller()
	train := flag.Bool("train", false, "train and cache every profile, then exit")
	evaluate := flag.Bool("evaluate", false, "score every profile with a test corpus against the baseline, then exit")
	flag.Parse()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	params, closeClients, err := loaderParams(config)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to create storage clients")
		os.Exit(1)
	}
	defer closeClients()

	if *train || *evaluate {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Failed to load configurations")
			os.Exit(1)
		}
		params.Configurations = cfgs
		params.Retrain = *train
		profiles, err := pipeline.LoadModels(context.Background(), params)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Failed to train models")
			os.Exit(1)
		}
		posLogger.Info().Msgf("Trained %d profiles", len(profiles))
		if *evaluate {
			if err = evaluateProfiles(posLogger, params, profiles); err != nil {
				fatalErrLogger.Err(err).Msg("Failed to evaluate models")
				os.Exit(1)
			}
		}
		return
	}

	// Load models
	taggingChannel := make(chan *pipeline.Tagging)
	go func() {
		for retry := 0; retry < modelsLoadMaxRetries; retry++ {
			cfgs, err := types.LoadConfigurations(config.ConfigPath)
			if err != nil {
				posLogger.Err(err).Msg("Failed to load configurations. Retrying in 5 sec")
				time.Sleep(5 * time.Second)
				continue
			}
			posLogger.Info().Msgf("Loaded %d configurations", len(cfgs))
			params.Configurations = cfgs
			profiles, err := pipeline.LoadModels(context.Background(), params)
			if err != nil {
				posLogger.Err(err).Msg("Failed to load models. Retrying in 5 sec")
				time.Sleep(5 * time.Second)
				continue
			}
			tagging, err := pipeline.NewTagging(profiles, config.DefaultProfile)
			if err != nil {
				posLogger.Err(err).Msg("Failed to start tagging pipeline. Retrying in 5 sec")
				time.Sleep(5 * time.Second)
				continue
			}
			utils.GlobalStringStore().Lock()
			posLogger.Info().Strs("profiles", tagging.Profiles()).Msg("Models loaded")
			taggingChannel <- tagging
			return
		}
		fatalErrLogger.Msg("Could not load models after 5 retries, exiting")
		os.Exit(1)
	}()

	// block until models load
	tagging := <-taggingChannel
	ppln := tagging.Pipeline()

	apiErrors := make(chan error, 1)
	if config.RestAPIActive {
		go func() {
			posLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{
				Pipeline: ppln,
				Profiles: tagging,
			}
			http.HandleFunc("/", apiRequest.ProcessData)
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			posLogger.Info().Msgf("REST API on %s", host)
			apiErrors <- http.ListenAndServe(host, nil)
		}()
	}

	if !config.WorkerActive {
		err := <-apiErrors
		fatalErrLogger.Err(err).Msg("REST API stopped with error")
		os.Exit(1)
	}

	posLogger.Info().Msg("Start tagging worker")
	for {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		err = rmqWorker.StartWorker()
		if err != nil {
			posLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

func loaderParams(config Config) (pipeline.LoaderParams, func(), error) {
	params := pipeline.LoaderParams{CorpusDir: config.CorpusDir}
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if config.ModelCache {
		cache, err := redis.NewClient(pipeline.ModelsDB)
		if err != nil {
			return params, closeAll, err
		}
		params.Cache = &cache
		closers = append(closers, func() { _ = cache.Close() })
	}
	if config.ObjectStore {
		store, err := s3client.New()
		if err != nil {
			closeAll()
			return params, func() {}, err
		}
		params.Storage = store
		closers = append(closers, store.Close)
	}
	return params, closeAll, nil
}

func evaluateProfiles(posLogger zerolog.Logger, params pipeline.LoaderParams, profiles map[string]*pipeline.Profile) error {
	for _, cfg := range params.Configurations {
		if cfg.TestCorpus == "" {
			posLogger.Info().Str("profile", cfg.Name).Msg("No test corpus, skipping evaluation")
			continue
		}
		profile := profiles[cfg.Name]
		train, err := pipeline.ReadCorpus(params, cfg.CorpusSource, cfg.TrainCorpus)
		if err != nil {
			return fmt.Errorf("profile %q: %w", cfg.Name, err)
		}
		test, err := pipeline.ReadCorpus(params, cfg.CorpusSource, cfg.TestCorpus)
		if err != nil {
			return fmt.Errorf("profile %q: %w", cfg.Name, err)
		}
		report := eval.Report(cfg.Name, profile.Model, profile.Filter, train, test)
		posLogger.Info().Interface("report", report).Msg("Evaluation finished")
	}
	return nil
}
