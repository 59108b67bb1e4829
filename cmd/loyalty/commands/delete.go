package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <owner-id>",
	Short: "Delete the rule set of one owner",
	Long: `Delete the rule set of a campaign, coupon or product rule.

Examples:
  loyalty delete coupon WELCOME10 --env prod
  loyalty delete coupon WELCOME10 --env prod --force  # Skip confirmation`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		ownerID := args[1]

		c, effectiveEnv, err := newAPIClient()
		if err != nil {
			return err
		}

		if !deleteForce {
			fmt.Printf("Are you sure you want to delete the rule set of %s/%s in environment '%s'? (y/N): ", kind, ownerID, effectiveEnv)
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Deletion cancelled")
				return nil
			}
		}

		if err := c.DeleteRuleSet(context.Background(), kind, ownerID); err != nil {
			return fmt.Errorf("failed to delete rule set: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully deleted the rule set of %s/%s\n", kind, ownerID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
