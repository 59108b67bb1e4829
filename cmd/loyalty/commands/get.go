package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <kind> <owner-id>",
	Short: "Get the rule set of one owner",
	Long: `Fetch the rule set of one campaign, coupon or product rule.

With --output the rule set is written as an editable document (YAML, or JSON
for a .json path) that remembers its ETag, so a later push fails instead of
overwriting a concurrent change.

Examples:
  loyalty get coupon WELCOME10 --env prod
  loyalty get coupon WELCOME10 --format yaml
  loyalty get campaign spring --output spring.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}

		c, _, err := newAPIClient()
		if err != nil {
			return err
		}

		rs, err := c.GetRuleSet(context.Background(), kind, args[1])
		if err != nil {
			return fmt.Errorf("failed to get rule set: %w", err)
		}
		doc := cli.DocumentFromRuleSet(rs)

		if getOutput != "" {
			if err := cli.SaveDocument(getOutput, doc); err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("Wrote %s/%s to %s\n", kind, rs.OwnerID, getOutput)
			}
			return nil
		}

		if quiet {
			return nil
		}
		return cli.PrintDocument(os.Stdout, doc, f)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Write the rule set to a document file")
}
