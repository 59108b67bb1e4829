package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
)

var newForce bool

var newCmd = &cobra.Command{
	Use:   "new <kind> <owner-id> <file>",
	Short: "Create an empty rule-set document",
	Long: `Create a local document holding an empty rule set.

Examples:
  loyalty new coupon WELCOME10 welcome10.yaml
  loyalty new product_rule bulk-discount bulk.json --force`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		path := args[2]

		if !newForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		if err := cli.SaveDocument(path, cli.NewDocument(kind, args[1])); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("Created %s for %s/%s\n", path, kind, args[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "Overwrite an existing file")
}
