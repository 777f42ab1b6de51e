package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and their pricing",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PROVIDER\tMODEL\tINPUT ($/1K)\tOUTPUT ($/1K)\n")
	for _, provider := range table.Providers() {
		for _, key := range table.Models(provider) {
			rate, err := table.Price(provider, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t$%s\t$%s\n",
				provider, key, rate.InputPer1K.String(), rate.OutputPer1K.String())
		}
	}
	return w.Flush()
}
