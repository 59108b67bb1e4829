package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List rule sets of an owner kind",
	Long: `List every rule set stored for campaigns, coupons or product rules.

Examples:
  loyalty list coupon --env prod
  loyalty list campaign --format json`,
	Args: cobra.ExactArgs(1),
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

		sets, err := c.ListRuleSets(context.Background(), kind)
		if err != nil {
			return fmt.Errorf("failed to list rule sets: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintRuleSets(os.Stdout, sets, f)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
