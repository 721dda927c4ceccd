package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koala-nodes/aspect-latent/pkg/node"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
)

// matchRow is one line of match output
type matchRow struct {
	Query   string          `json:"query"`
	Input   node.Dimensions `json:"input"`
	Matched ratio.Entry     `json:"matched"`
}

func (c *CLI) matchCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <ratio|WxH|W:H|image>...",
		Short: "Find the nearest bucket for ratios, sizes or images",
		Long: `Match each argument against the bucket table.

Arguments may be a ratio (1.5), a size (1920x1080), a proportion (16:9),
or an image path or http(s) URL whose dimensions are read.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			rows := make([]matchRow, 0, len(args))
			for _, arg := range args {
				row, err := c.matchArg(arg)
				if err != nil {
					return err
				}
				logger.Debug("matched", "query", arg, "ratio", row.Input.Ratio, "entry", row.Matched)
				rows = append(rows, row)
			}

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					r.Query,
					fmt.Sprintf("%.3f", r.Input.Ratio),
					r.Matched.String(),
					fmt.Sprintf("%.2f", r.Matched.Ratio),
				})
			}
			fmt.Fprintln(c.out, renderTable([]string{"Input", "Ratio", "Matched", "Bucket Ratio"}, out, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func (c *CLI) matchArg(arg string) (matchRow, error) {
	if dims, ok := parseDimensions(arg); ok {
		if !(dims.Ratio > 0) || math.IsInf(dims.Ratio, 0) {
			return matchRow{}, fmt.Errorf("invalid ratio %q: must be a positive finite number", arg)
		}
		return matchRow{Query: arg, Input: dims, Matched: ratio.Match(dims.Ratio)}, nil
	}

	dims, entry, err := c.al.MatchSource(arg)
	if err != nil {
		return matchRow{}, fmt.Errorf("%s: %w", arg, err)
	}
	return matchRow{Query: arg, Input: dims, Matched: entry}, nil
}

// parseDimensions understands "1.5", "1920x1080" and "16:9". The boolean is
// false when arg is none of these and should be treated as an image source.
func parseDimensions(arg string) (node.Dimensions, bool) {
	if r, err := strconv.ParseFloat(arg, 64); err == nil {
		return node.Dimensions{Ratio: r}, true
	}

	for _, sep := range []string{"x", "X", ":"} {
		parts := strings.Split(arg, sep)
		if len(parts) != 2 {
			continue
		}
		w, errW := strconv.Atoi(parts[0])
		h, errH := strconv.Atoi(parts[1])
		if errW != nil || errH != nil {
			continue
		}
		if w <= 0 || h <= 0 {
			return node.Dimensions{Width: w, Height: h}, true
		}
		return node.Dimensions{Width: w, Height: h, Ratio: float64(w) / float64(h)}, true
	}
	return node.Dimensions{}, false
}
