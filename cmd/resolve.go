package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	resolveProvider string
	resolveSystem   string
	resolveJSON     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <workbook.xlsx>",
	Short: "Resolve the fields of one interface workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initResolution(ctx, "resolve", resolveProvider, resolveSystem)
		if err != nil {
			return err
		}
		defer env.Close()

		outcome, err := processWorkbook(ctx, env, args[0])
		if err != nil {
			return eris.Wrap(err, "resolve workbook")
		}
		if outcome == nil {
			return nil
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveProvider, "provider", "", "completion provider override (claude, gemini)")
	resolveCmd.Flags().StringVar(&resolveSystem, "system", "", "source system key for the resolution profile")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the full outcome as JSON")
	rootCmd.AddCommand(resolveCmd)
}
