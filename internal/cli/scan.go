package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koala-nodes/aspect-latent/internal/utils"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
)

// scanResult is the outcome for one file
type scanResult struct {
	Path    string       `json:"path"`
	Width   int          `json:"width,omitempty"`
	Height  int          `json:"height,omitempty"`
	Matched *ratio.Entry `json:"matched,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// bucketCount is how many files landed in one bucket
type bucketCount struct {
	Entry ratio.Entry `json:"entry"`
	Count int         `json:"count"`
}

func (c *CLI) scanCommand() *cobra.Command {
	var (
		workers int
		asJSON  bool
		noBar   bool
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Match every image under a directory and count files per bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			p := newProgress(logger)

			files, err := utils.ListImageFiles(args[0])
			if err != nil {
				return fmt.Errorf("list images: %w", err)
			}
			if len(files) == 0 {
				logger.Warn("no images found", "dir", args[0])
				return nil
			}

			var barOut io.Writer = cmd.ErrOrStderr()
			if noBar || asJSON {
				barOut = io.Discard
			}
			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(barOut),
				progressbar.OptionSetDescription("Matching"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionClearOnFinish(),
			)

			results, err := c.scanFiles(cmd.Context(), files, workers, func() { bar.Add(1) })
			bar.Finish()
			if err != nil {
				return err
			}

			buckets, failed := summarize(results)
			for _, r := range results {
				if r.Error != "" {
					logger.Warn("skipped", "path", r.Path, "err", r.Error)
				}
			}
			p.done(fmt.Sprintf("Matched %d of %d images", len(files)-failed, len(files)))

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Files   []scanResult  `json:"files"`
					Buckets []bucketCount `json:"buckets"`
				}{results, buckets})
			}

			rows := make([][]string, 0, len(buckets))
			for _, b := range buckets {
				rows = append(rows, []string{b.Entry.String(), fmt.Sprintf("%.2f", b.Entry.Ratio), fmt.Sprintf("%d", b.Count)})
			}
			fmt.Fprintln(c.out, renderTable([]string{"Bucket", "Ratio", "Images"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "number of files probed concurrently")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print per-file results and bucket counts as JSON")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "hide the progress bar")
	return cmd
}

// scanFiles probes files with at most workers concurrent reads. Per-file
// failures are recorded in the result; only cancellation aborts the scan.
func (c *CLI) scanFiles(ctx context.Context, files []string, workers int, tick func()) ([]scanResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]scanResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer tick()

			res := scanResult{Path: path}
			dims, entry, err := c.al.MatchSource(path)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Width, res.Height = dims.Width, dims.Height
				res.Matched = &entry
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// summarize counts files per bucket in table order and returns the number of failures
func summarize(results []scanResult) ([]bucketCount, int) {
	counts := map[ratio.Entry]int{}
	failed := 0
	for _, r := range results {
		if r.Matched == nil {
			failed++
			continue
		}
		counts[*r.Matched]++
	}

	out := make([]bucketCount, 0, len(counts))
	for e, n := range counts {
		out = append(out, bucketCount{Entry: e, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.Ratio < out[j].Entry.Ratio })
	return out, failed
}
