package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/car-price-checker/internal/catalog"
)

var catalogMake string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List supported makes, or the models of one make",
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatCatalog(cmd.OutOrStdout(), catalog.Default(), catalogMake, time.Now())
	},
}

// formatCatalog writes every make with its models, or only the models of
// makeName when it is set.
func formatCatalog(out io.Writer, c *catalog.Catalog, makeName string, now time.Time) error {
	if makeName != "" {
		models, ok := c.Models(makeName)
		if !ok {
			return eris.Errorf("unknown make %q", makeName)
		}
		for _, m := range models {
			_, _ = fmt.Fprintln(out, m)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MAKE\tMODELS")
	_, _ = fmt.Fprintln(w, "----\t------")
	for _, mk := range c.MakeNames() {
		models, _ := c.Models(mk)
		_, _ = fmt.Fprintf(w, "%s\t%s\n", mk, strings.Join(models, ", "))
	}
	_ = w.Flush()

	years := c.Years(now)
	if len(years) > 0 {
		_, _ = fmt.Fprintf(out, "\nYears %d-%d\n", years[len(years)-1], years[0])
	}
	return nil
}

func init() {
	catalogCmd.Flags().StringVar(&catalogMake, "make", "", "list models for this make")
	rootCmd.AddCommand(catalogCmd)
}
