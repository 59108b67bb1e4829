package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
	"github.com/TimurManjosov/goloyalty/internal/client"
)

var pushForce bool

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save a rule-set document to the server",
	Long: `Replace the owner's rule set with the contents of a document.

The document's ETag is sent as If-Match, so the push is rejected when the rule
set changed on the server since the document was fetched. Use --force to
overwrite regardless. On success the document is rewritten with the ids the
server assigned and the new ETag.

Examples:
  loyalty push welcome10.yaml --env prod
  loyalty push spring.json --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		doc, err := cli.LoadDocument(path)
		if err != nil {
			return err
		}
		elements, err := doc.Elements()
		if err != nil {
			return err
		}

		c, effectiveEnv, err := newAPIClient()
		if err != nil {
			return err
		}

		ifMatch := doc.ETag
		if pushForce {
			ifMatch = ""
		}

		saved, err := c.SaveRuleSet(context.Background(), doc.Kind, doc.OwnerID, elements, ifMatch)
		if errors.Is(err, client.ErrStale) {
			return fmt.Errorf("%s/%s changed on the server since %s was fetched; run get again or push with --force", doc.Kind, doc.OwnerID, path)
		}
		if err != nil {
			return fmt.Errorf("failed to push rule set: %w", err)
		}

		if err := cli.SaveDocument(path, cli.DocumentFromRuleSet(saved)); err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Successfully pushed %s/%s to environment '%s' (etag %s)\n", doc.Kind, doc.OwnerID, effectiveEnv, saved.ETag)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().BoolVar(&pushForce, "force", false, "Overwrite without checking the ETag")
}
