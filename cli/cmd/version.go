package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/cli/render"
	"github.com/pithecene-io/imagesources/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version"`
	ReportVersion string `json:"report_version"`
	Commit        string `json:"commit"`
}

// VersionCommand returns the version command.
// It reads neither the config file nor the database.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := rejectTUI(c); err != nil {
			return err
		}

		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}

		return r.Render(VersionResponse{
			Version:       types.Version,
			ReportVersion: types.ReportVersion,
			Commit:        commit,
		})
	}
}
