package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/cli/render"
	"github.com/pithecene-io/imagesources/cli/tui"
	"github.com/pithecene-io/imagesources/lode"
	"github.com/pithecene-io/imagesources/types"
)

// defaultReportLimit bounds the reports listed when --limit is absent.
const defaultReportLimit = 10

// ReportsCommand returns the reports command.
// It reads stored run reports and never opens the media library.
func ReportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "Show stored bulk run reports, newest first",
		Flags: append(OutputFlags(),
			&cli.StringFlag{
				Name:  "command",
				Usage: "Only show reports of this command: add-class, webp-convert",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of reports (0 for all)",
				Value: defaultReportLimit,
			},
		),
		Action: reportsAction,
	}
}

func reportsAction(c *cli.Context) error {
	command := c.String("command")
	switch command {
	case "", types.CommandAddClass, types.CommandWebPConvert:
	default:
		return cli.Exit(fmt.Sprintf("unknown command %q (must be add-class or webp-convert)", command), exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openReportStore(c.Context, cfg.Storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("report storage: %v", err), exitFailure)
	}
	if store == nil {
		return cli.Exit("report storage is disabled (set storage.backend)", exitFailure)
	}

	reports, err := lode.LatestReports(c.Context, store.Dataset(), command, c.Int("limit"))
	// A store nothing was written to yet may not exist.
	if err != nil && !errors.Is(err, lode.ErrNoReportsFound) && !errors.Is(err, lode.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("read reports: %v", err), exitFailure)
	}
	if reports == nil {
		reports = []types.RunReport{}
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewReports, reports)
	}
	return r.Render(reports)
}
