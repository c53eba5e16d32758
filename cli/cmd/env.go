package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/adapter"
	"github.com/pithecene-io/imagesources/adapter/redis"
	"github.com/pithecene-io/imagesources/adapter/webhook"
	"github.com/pithecene-io/imagesources/cli/config"
	"github.com/pithecene-io/imagesources/iox"
	"github.com/pithecene-io/imagesources/lode"
	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/medialib"
	"github.com/pithecene-io/imagesources/plugin"
)

// environment is the per-invocation wiring shared by the commands that
// touch the media library.
type environment struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *medialib.Store
	library *medialib.Cache
	plugin  *plugin.Plugin
}

// newLogger builds the logger from --log-level. Entries go to the app's
// error writer so stdout stays parseable.
func newLogger(c *cli.Context) (*log.Logger, error) {
	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return log.NewLoggerWithWriter(level, c.App.ErrWriter), nil
}

// loadConfig reads the file named by --config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitFailure)
	}
	return cfg, nil
}

// openEnvironment loads the config, opens the media library and installs
// the plugin. The caller must Close the result.
func openEnvironment(c *cli.Context) (*environment, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	uploads := medialib.Uploads{Dir: cfg.Uploads.Dir, URL: cfg.Uploads.URL}
	store, err := medialib.Open(cfg.Database, uploads)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("open media library: %v", err), exitFailure)
	}

	library, err := medialib.NewCache(store, cfg.Cache.Size)
	if err != nil {
		iox.DiscardClose(store)
		return nil, cli.Exit(fmt.Sprintf("metadata cache: %v", err), exitFailure)
	}

	opts := plugin.DefaultOptions()
	opts.FilterContent = cfg.FilterContentEnabled()
	p, err := plugin.New(opts, plugin.Deps{Library: library, Uploads: uploads, Logger: logger})
	if err != nil {
		iox.DiscardClose(store)
		return nil, cli.Exit(err.Error(), exitFailure)
	}

	return &environment{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		library: library,
		plugin:  p,
	}, nil
}

// logCacheStats logs the metadata cache hit and miss counts at debug.
func (e *environment) logCacheStats(logger *log.Logger) {
	stats := e.library.Stats()
	logger.Debug("metadata cache stats", map[string]any{
		"hits":   stats.Hits,
		"misses": stats.Misses,
	})
}

// Close flushes the logger and closes the media library.
func (e *environment) Close() error {
	iox.DiscardErr(e.logger.Sync)
	return e.store.Close()
}

// openReportStore returns nil when report storage is disabled.
func openReportStore(ctx context.Context, cfg config.StorageConfig) (*lode.ReportStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.BackendFS:
		return lode.NewReportStoreFS(cfg.Path)
	case config.BackendS3:
		bucket, prefix := lode.ParseS3Path(cfg.Path)
		return lode.NewReportStoreS3(ctx, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be fs or s3)", cfg.Backend)
	}
}

// openAdapter returns nil when notifications are disabled.
func openAdapter(cfg *config.Config) (adapter.Adapter, error) {
	a := cfg.Adapter
	switch a.Type {
	case "":
		return nil, nil
	case config.AdapterRedis:
		r, err := redis.New(redis.Config{
			URL:     a.URL,
			Channel: a.Channel,
			Timeout: a.Timeout.Duration,
			Retries: cfg.AdapterRetries(),
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.AdapterWebhook:
		w, err := webhook.New(webhook.Config{
			URL:     a.URL,
			Headers: a.Headers,
			Timeout: a.Timeout.Duration,
			Retries: cfg.AdapterRetries(),
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be redis or webhook)", a.Type)
	}
}
