package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koala-nodes/aspect-latent/internal/utils"
)

func (c *CLI) fitCommand() *cobra.Command {
	var (
		outDir  string
		format  string
		subject bool
		debug   bool
		zoom    float64
	)

	cmd := &cobra.Command{
		Use:   "fit <image>...",
		Short: "Crop and resize images to their matched bucket",
		Long: `Crop each image to the ratio of its nearest bucket and resize it to the
bucket's exact width and height.

With --subject the crop is centered on the subject located by the configured
vision backend: vision.backend = "ollama" asks a vision model, "saliency"
uses a local edge heuristic. Without --subject the crop is centered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if cmd.Flags().Changed("out") {
				c.cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("format") {
				c.cfg.Output.Format = strings.ToLower(format)
			}
			if cmd.Flags().Changed("zoom") {
				c.cfg.Vision.Zoom = zoom
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			if err := utils.EnsureDir(c.cfg.Output.Dir); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for _, src := range args {
				p := newProgress(logger)

				img, err := c.al.LoadImage(src)
				if err != nil {
					return fmt.Errorf("%s: %w", src, err)
				}

				res, err := c.al.FitImage(ctx, img, subject)
				if err != nil {
					return fmt.Errorf("%s: %w", src, err)
				}
				if res.Subject != nil {
					logger.Info("subject", "label", res.Subject.Primary.Label,
						"confidence", res.Subject.Primary.Confidence, "center", fmt.Sprintf("%.3f,%.3f", res.Center.X, res.Center.Y))
				}

				outPath := utils.GenerateOutputFilename(src, c.cfg.Output.Dir, c.cfg.Output.Suffix, c.cfg.Output.Format)
				if err := c.al.SaveImage(res.Image, outPath); err != nil {
					return fmt.Errorf("save %s: %w", outPath, err)
				}

				if debug {
					dbgPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_debug." + c.cfg.Output.Format
					if err := c.al.SaveImage(c.al.DebugOverlay(img, res), dbgPath); err != nil {
						logger.Warn("debug overlay save failed", "path", dbgPath, "err", err)
					} else {
						logger.Debug("wrote debug overlay", "path", dbgPath)
					}
				}

				b := img.Bounds()
				p.done(fmt.Sprintf("%s %dx%d %s %s", src, b.Dx(), b.Dy(), iconArrow, res.Entry))
				printSuccess(c.out, "wrote %s", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "output format: jpg|png|webp (default from config)")
	cmd.Flags().BoolVar(&subject, "subject", false, "center the crop on the subject found by the vision backend")
	cmd.Flags().BoolVar(&debug, "debug", false, "also write an overlay showing the crop and subject")
	cmd.Flags().Float64Var(&zoom, "zoom", 1.0, "shrink factor for the crop window (0.01..1.0)")
	return cmd
}
