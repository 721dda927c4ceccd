package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/koala-nodes/aspect-latent/pkg/latent"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
)

func (c *CLI) tableCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the bucket table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := ratio.Entries()
			def := c.al.Node().Config().Default

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			rows := make([][]string, 0, len(entries))
			highlight := map[int]bool{}
			for i, e := range entries {
				lw, lh := e.LatentSize(latent.DownscaleFactor)
				rows = append(rows, []string{
					strconv.Itoa(i),
					e.String(),
					fmt.Sprintf("%.2f", e.Ratio),
					string(e.Orientation()),
					fmt.Sprintf("%dx%d", lw, lh),
				})
				if e == def {
					highlight[i] = true
				}
			}
			fmt.Fprintln(c.out, renderTable([]string{"#", "Size", "Ratio", "Orientation", "Latent"}, rows, highlight))
			fmt.Fprintf(c.out, "%s default %s\n", styleDim.Render(iconArrow), def)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the table as JSON")
	return cmd
}
