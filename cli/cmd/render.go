package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/iox"
	"github.com/pithecene-io/imagesources/medialib"
)

// RenderCommand returns the render command.
// It prints content after the installed content filters ran over it.
func RenderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Print the filtered content of a post or of stdin",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "post-id",
				Usage: "ID of the post to render",
			},
			&cli.BoolFlag{
				Name:  "stdin",
				Usage: "Read content from stdin",
			},
		},
		Action: renderAction,
	}
}

func renderAction(c *cli.Context) error {
	if c.IsSet("post-id") == c.Bool("stdin") {
		return cli.Exit("exactly one of --post-id or --stdin is required", exitUsage)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(env)

	var content string
	if c.Bool("stdin") {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return cli.Exit(fmt.Sprintf("read stdin: %v", err), exitFailure)
		}
		content = string(data)
	} else {
		id := c.Int64("post-id")
		post, err := env.store.Post(c.Context, id)
		if errors.Is(err, medialib.ErrNotFound) {
			return cli.Exit(fmt.Sprintf("post %d not found", id), exitFailure)
		}
		if err != nil {
			return cli.Exit(fmt.Sprintf("read post %d: %v", id, err), exitFailure)
		}
		content = post.Content
	}

	rendered := env.plugin.RenderContent(c.Context, content)
	env.logCacheStats(env.logger)

	_, err = fmt.Fprint(c.App.Writer, rendered)
	return err
}
