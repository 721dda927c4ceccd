package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/koala-nodes/aspect-latent/pkg/node"
)

func (c *CLI) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the node descriptor and display names as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Nodes        map[string]node.Descriptor `json:"nodes"`
				DisplayNames map[string]string          `json:"display_names"`
				Effective    node.Descriptor            `json:"effective"`
			}{
				Nodes:        node.Descriptors(),
				DisplayNames: node.DisplayNames(),
				Effective:    node.Describe(c.al.Node().Config()),
			})
		},
	}
}
