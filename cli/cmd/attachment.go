package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/cli/render"
	"github.com/pithecene-io/imagesources/iox"
	"github.com/pithecene-io/imagesources/medialib"
	"github.com/pithecene-io/imagesources/types"
)

// AttachmentResponse is the response for attachment subcommands.
type AttachmentResponse struct {
	ID      int64               `json:"id"`
	Deleted bool                `json:"deleted,omitempty"`
	HasWebP bool                `json:"has_webp"`
	WebP    *types.WebPMetadata `json:"webp,omitempty" yaml:"webp,omitempty"`
}

// AttachmentCommand returns the attachment command with subcommands.
// Each subcommand fires one media library lifecycle hook.
func AttachmentCommand() *cli.Command {
	idFlag := &cli.Int64Flag{
		Name:     "id",
		Usage:    "Attachment ID",
		Required: true,
	}

	return &cli.Command{
		Name:  "attachment",
		Usage: "Run attachment lifecycle hooks",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Fire the metadata-generated hook (regenerates WebP renditions)",
				Flags:  append([]cli.Flag{idFlag}, OutputFlags()...),
				Action: attachmentGenerateAction,
			},
			{
				Name:   "delete",
				Usage:  "Fire the delete hook and delete the attachment",
				Flags:  append([]cli.Flag{idFlag}, OutputFlags()...),
				Action: attachmentDeleteAction,
			},
		},
	}
}

func attachmentGenerateAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(env)

	ctx := c.Context
	id := c.Int64("id")
	if _, err := env.store.AttachedFile(ctx, id); err != nil {
		return attachmentExit(id, err)
	}

	meta, err := env.library.AttachmentMetadata(ctx, id)
	if err != nil {
		return attachmentExit(id, err)
	}
	env.plugin.GenerateAttachmentMetadata(ctx, id, meta)

	resp := AttachmentResponse{ID: id}
	if resp.HasWebP, err = env.store.HasWebP(ctx, id); err != nil {
		return attachmentExit(id, err)
	}
	if resp.WebP, err = env.library.WebPMetadata(ctx, id); err != nil {
		return attachmentExit(id, err)
	}
	return r.Render(resp)
}

func attachmentDeleteAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(env)

	id := c.Int64("id")
	if err := env.plugin.DeleteAttachment(c.Context, id); err != nil {
		return attachmentExit(id, err)
	}
	return r.Render(AttachmentResponse{ID: id, Deleted: true})
}

func attachmentExit(id int64, err error) error {
	if errors.Is(err, medialib.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("attachment %d not found", id), exitFailure)
	}
	return cli.Exit(fmt.Sprintf("attachment %d: %v", id, err), exitFailure)
}
