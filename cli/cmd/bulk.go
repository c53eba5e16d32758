package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/adapter"
	"github.com/pithecene-io/imagesources/bulk"
	"github.com/pithecene-io/imagesources/cli/render"
	"github.com/pithecene-io/imagesources/imagetag"
	"github.com/pithecene-io/imagesources/iox"
	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/metrics"
	"github.com/pithecene-io/imagesources/types"
)

// AddClassCommand returns the add-class command.
func AddClassCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-class",
		Usage: "Add the wp-image-{id} class to images in existing posts",
		Flags: append(OutputFlags(),
			&cli.StringSliceFlag{
				Name:  "post-type",
				Usage: "Post type to process (repeatable, overrides post_types)",
			},
		),
		Action: addClassAction,
	}
}

// WebPConvertCommand returns the webp-convert command.
func WebPConvertCommand() *cli.Command {
	return &cli.Command{
		Name:   "webp-convert",
		Usage:  "Generate WebP renditions for every image attachment",
		Flags:  OutputFlags(),
		Action: webpConvertAction,
	}
}

func addClassAction(c *cli.Context) error {
	return runBulk(c, types.CommandAddClass, func(ctx context.Context, run *bulkRun) (bulk.Result, error) {
		postTypes := c.StringSlice("post-type")
		if len(postTypes) == 0 {
			postTypes = run.env.cfg.PostTypes
		}
		tagger := bulk.NewClassTagger(bulk.ClassTaggerConfig{
			Posts:     run.env.store,
			Resolver:  imagetag.NewResolver(run.env.store, run.logger),
			PostTypes: postTypes,
			RunID:     run.meta.RunID,
			Progress:  run.progress,
			Logger:    run.logger,
		})
		return tagger.Run(ctx)
	})
}

func webpConvertAction(c *cli.Context) error {
	return runBulk(c, types.CommandWebPConvert, func(ctx context.Context, run *bulkRun) (bulk.Result, error) {
		backfill := bulk.NewWebPBackfill(bulk.WebPBackfillConfig{
			Attachments: run.env.store,
			Converter:   run.env.plugin.Manager(),
			RunID:       run.meta.RunID,
			Progress:    run.progress,
			Logger:      run.logger,
		})
		return backfill.Run(ctx)
	})
}

// bulkRun is one invocation of a bulk command.
type bulkRun struct {
	env      *environment
	meta     types.RunMeta
	logger   *log.Logger
	progress io.Writer
}

type bulkFunc func(ctx context.Context, run *bulkRun) (bulk.Result, error)

// runBulk opens the environment, runs fn, then prints the summary, stores
// the run report and publishes the completion event. Report and publish
// failures are logged only.
func runBulk(c *cli.Context, command string, fn bulkFunc) error {
	if err := rejectTUI(c); err != nil {
		return err
	}

	// The plain-text summary is printed unless --format asks for a
	// structured report.
	var r *render.Renderer
	if c.IsSet("format") {
		var err error
		if r, err = render.NewRenderer(c); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(env)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := &bulkRun{
		env: env,
		meta: types.RunMeta{
			RunID:     uuid.New().String(),
			Command:   command,
			StartedAt: time.Now(),
		},
	}
	run.logger = env.logger.WithRun(command, run.meta.RunID)
	if isStderrTTY() {
		run.progress = c.App.ErrWriter
	}

	result, runErr := fn(ctx, run)
	env.logCacheStats(run.logger)
	interrupted := runErr != nil && errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return cli.Exit(fmt.Sprintf("%s: %v", command, runErr), exitFailure)
	}

	report := newRunReport(run.meta, result, time.Since(run.meta.StartedAt))

	if r != nil {
		if err := r.Render(report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(c.App.Writer, bulk.Report(result.Snapshot))
	}

	// Reporting outlives an interrupt.
	finishCtx := context.WithoutCancel(ctx)
	storagePath, storage := run.persist(finishCtx, report)
	run.publish(finishCtx, report, storagePath, storage)

	if interrupted {
		return cli.Exit(command+": interrupted", exitFailure)
	}
	return nil
}

// newRunReport builds the report of a finished run.
func newRunReport(meta types.RunMeta, result bulk.Result, elapsed time.Duration) types.RunReport {
	return types.RunReport{
		ReportVersion: types.ReportVersion,
		RunID:         meta.RunID,
		Command:       meta.Command,
		Day:           meta.StartedAt.UTC().Format("2006-01-02"),
		StartedAt:     meta.StartedAt,
		DurationMs:    elapsed.Milliseconds(),
		Counters:      result.Snapshot.Counters(),
		Failures:      result.Failures,
	}
}

// persist writes the report and its failures sidecar. It returns the
// partition path, or "" when nothing was stored, and the storage outcome
// counters.
func (run *bulkRun) persist(ctx context.Context, report types.RunReport) (string, metrics.Snapshot) {
	collector := metrics.NewCollector(report.Command, report.RunID)
	sugar := run.logger.Sugar()

	store, err := openReportStore(ctx, run.env.cfg.Storage)
	if err != nil {
		collector.IncReportWriteFailure()
		sugar.Errorf("report storage unavailable: %v", err)
		return "", collector.Snapshot()
	}
	if store == nil {
		return "", collector.Snapshot()
	}

	path, err := store.Write(ctx, report)
	if err != nil {
		collector.IncReportWriteFailure()
		sugar.Errorf("report write failed: %v", err)
		return "", collector.Snapshot()
	}
	collector.IncReportWriteSuccess()

	if err := store.PutFailures(ctx, report, report.Failures); err != nil {
		sugar.Warnf("failures sidecar write failed for %s: %v", path, err)
	}

	sugar.Infof("run report stored at %s", path)
	return path, collector.Snapshot()
}

// publish sends the batch completion event when an adapter is configured.
// The event carries the run counters plus the report storage outcome.
func (run *bulkRun) publish(ctx context.Context, report types.RunReport, storagePath string, storage metrics.Snapshot) {
	sugar := run.logger.Sugar()

	a, err := openAdapter(run.env.cfg)
	if err != nil {
		sugar.Errorf("adapter unavailable: %v", err)
		return
	}
	if a == nil {
		return
	}
	defer iox.DiscardClose(a)

	counters := make(map[string]int64, len(report.Counters)+2)
	maps.Copy(counters, report.Counters)
	maps.Copy(counters, storage.StorageCounters())
	report.Counters = counters

	event := adapter.NewBatchCompletedEvent(report, storagePath, time.Now())
	if err := a.Publish(ctx, event); err != nil {
		sugar.Errorf("batch completion publish failed: %v", err)
		return
	}
	sugar.Debugf("%s event published for run %s", event.EventType, event.RunID)
}
