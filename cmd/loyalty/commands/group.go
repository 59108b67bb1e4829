package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
	"github.com/TimurManjosov/goloyalty/internal/ids"
	"github.com/TimurManjosov/goloyalty/internal/rules"
)

var (
	groupMatch string
	groupGate  string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Edit the groups of a rule-set document",
	Long: `Add, remove and reconfigure condition groups in a local document.
Changes are saved to the file only; push the document to apply them.`,
}

var groupAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Append an empty group",
	Long: `Append an empty group. When the document already has a group, an
operator joining the new group to the previous one is inserted first.

Examples:
  loyalty group add welcome10.yaml --match all
  loyalty group add welcome10.yaml --match any --gate or`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, err := parseMatch(groupMatch)
		if err != nil {
			return err
		}
		gate, err := parseGate(groupGate)
		if err != nil {
			return err
		}

		var added rules.RuleGroup
		_, err = cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			var out []rules.RuleElement
			out, added = rules.AddGroup(els, match, gate, ids.New)
			return out, nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Added group %s\n", added.ID)
		}
		return nil
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove <file> <group-id>",
	Short: "Remove a group and its conditions",
	Long: `Remove a group, its conditions and one adjacent operator.

Example:
  loyalty group remove welcome10.yaml 0192f7c4-...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID := args[1]
		_, err := cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			if _, ok := rules.FindGroup(els, groupID); !ok {
				return nil, fmt.Errorf("group '%s' not found", groupID)
			}
			return rules.RemoveGroup(els, groupID), nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Removed group %s\n", groupID)
		}
		return nil
	},
}

var groupMatchCmd = &cobra.Command{
	Use:   "match <file> <group-id> <all|any>",
	Short: "Set whether all or any conditions of a group must hold",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID := args[1]
		match, err := parseMatch(args[2])
		if err != nil {
			return err
		}

		_, err = cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			if _, ok := rules.FindGroup(els, groupID); !ok {
				return nil, fmt.Errorf("group '%s' not found", groupID)
			}
			return rules.UpdateGroup(els, groupID, match), nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Group %s now matches %s\n", groupID, match)
		}
		return nil
	},
}

var groupOperatorCmd = &cobra.Command{
	Use:   "operator <file> <operator-id> <and|or>",
	Short: "Set the gate joining two groups",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		operatorID := args[1]
		gate, err := parseGate(args[2])
		if err != nil {
			return err
		}

		_, err = cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			found := false
			for _, el := range els {
				if op, ok := el.(rules.GroupOperator); ok && op.ID == operatorID {
					found = true
				}
			}
			if !found {
				return nil, fmt.Errorf("operator '%s' not found", operatorID)
			}
			return rules.SetGroupOperator(els, operatorID, gate), nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Operator %s is now %s\n", operatorID, gate)
		}
		return nil
	},
}

func parseMatch(s string) (rules.Match, error) {
	switch m := rules.Match(s); m {
	case rules.MatchAll, rules.MatchAny:
		return m, nil
	default:
		return "", fmt.Errorf("invalid match '%s' (want all or any)", s)
	}
}

func parseGate(s string) (rules.LogicGate, error) {
	switch g := rules.LogicGate(s); g {
	case rules.GateAnd, rules.GateOr:
		return g, nil
	default:
		return "", fmt.Errorf("invalid gate '%s' (want and or or)", s)
	}
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupRemoveCmd)
	groupCmd.AddCommand(groupMatchCmd)
	groupCmd.AddCommand(groupOperatorCmd)

	groupAddCmd.Flags().StringVar(&groupMatch, "match", "all", "Whether all or any conditions must hold")
	groupAddCmd.Flags().StringVar(&groupGate, "gate", "and", "Gate joining the new group to the previous one")
}
