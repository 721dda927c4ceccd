package cli

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/koala-nodes/aspect-latent/pkg/node"
)

func (c *CLI) latentCommand() *cobra.Command {
	var (
		batch         int
		width, height int
		source        string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "latent",
		Short: "Run the node and report the empty latent it produces",
		Long: `Resolve a ratio from --image, or --width and --height, or the configured
default, match it to a bucket and allocate the empty latent.

An image takes priority over width/height. Supplying only one of width or
height falls back to the default bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			if !cmd.Flags().Changed("batch") {
				batch = c.cfg.Node.BatchSize
			}
			req := node.Request{BatchSize: batch, Width: width, Height: height}

			if source != "" {
				w, h, err := c.imageSize(source)
				if err != nil {
					return err
				}
				// only the bounds are read by the node
				req.Image = image.Rect(0, 0, w, h)
			}

			res, err := c.al.CreateLatent(req)
			if err != nil {
				return err
			}
			logger.Debug("latent created", "source", res.Source, "shape", res.Latent.Shape, "elements", res.Latent.Len())

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintln(c.out, res.Info)
			fmt.Fprintf(c.out, "%s %s\n", styleDim.Render("latent"), res.Latent)
			fmt.Fprintf(c.out, "%s %dx%d (AR: %.2f)\n", styleDim.Render("size  "), res.Width, res.Height, res.AspectRatio)
			return nil
		},
	}

	cmd.Flags().IntVarP(&batch, "batch", "b", 1, "batch size")
	cmd.Flags().IntVar(&width, "width", 0, "input width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "input height in pixels")
	cmd.Flags().StringVarP(&source, "image", "i", "", "image path or URL to take the ratio from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func (c *CLI) imageSize(source string) (int, int, error) {
	dims, _, err := c.al.MatchSource(source)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", source, err)
	}
	return dims.Width, dims.Height, nil
}
