package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var langs []string

var rootCmd = &cobra.Command{
	Use:           "validate <immersion file>...",
	Short:         "Check immersion descriptors before they are deployed",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		validator := &ImmersionValidator{langs: langs}
		failed := 0
		for _, filename := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "Validating %s...\n", filename)
			if err := validator.validateFile(filename); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Validation failed: %v\n", err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid!\n", filename)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d immersion files failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringSliceVar(&langs, "lang", []string{"en"}, "languages every waypoint text must cover")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
