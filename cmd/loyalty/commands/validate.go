package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
)

var validateRemote bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a rule-set document",
	Long: `Check a document's structure, condition types, operators and values.

With --remote the server runs its own checks too, including its size limits,
without saving anything.

Examples:
  loyalty validate welcome10.yaml
  loyalty validate welcome10.yaml --remote --env prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := cli.LoadDocument(args[0])
		if err != nil {
			return err
		}
		elements, err := doc.Elements()
		if err != nil {
			return err
		}

		if err := cli.ValidateDocument(doc); err != nil {
			return fmt.Errorf("%s is invalid: %w", args[0], err)
		}

		if validateRemote {
			c, _, err := newAPIClient()
			if err != nil {
				return err
			}
			report, err := c.ValidateRuleSet(context.Background(), doc.Kind, doc.OwnerID, elements)
			if err != nil {
				return fmt.Errorf("failed to validate rule set: %w", err)
			}
			if !report.Valid {
				fields := make([]string, 0, len(report.Errors))
				for f := range report.Errors {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				for _, f := range fields {
					fmt.Printf("  %s: %s\n", f, report.Errors[f])
				}
				return fmt.Errorf("%s was rejected by the server", args[0])
			}
		}

		if !quiet {
			fmt.Printf("%s is valid\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateRemote, "remote", false, "Also run the server-side checks")
}
