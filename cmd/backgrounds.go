package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/spf13/cobra"
)

func newBackgroundsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "backgrounds",
		Short: "List the background frames",
		Long: `Lists the registered backgrounds with their bounding boxes in native
pixels. A category without backgrounds lists the European fallback.`,
		Example: `  curio backgrounds
  curio backgrounds --category Chinese`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := backgrounds.Default()
			if err != nil {
				return fmt.Errorf("failed to load backgrounds: %w", err)
			}

			list := registry.All()
			if category != "" {
				c := backgrounds.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q (supported: %v)", category, backgrounds.Categories)
				}
				list = registry.Backgrounds(c)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tIMAGE\tBOX")
			for _, tpl := range list {
				b := tpl.BoundingBox
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d,%d %dx%d\n", tpl.ID, tpl.Category, tpl.ImagePath, b.X, b.Y, b.Width, b.Height)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list one category: Chinese, European or Modern")

	return cmd
}
