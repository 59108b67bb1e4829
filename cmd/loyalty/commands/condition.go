package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
	"github.com/TimurManjosov/goloyalty/internal/ids"
	"github.com/TimurManjosov/goloyalty/internal/rules"
)

var (
	condGroup      string
	condType       string
	condOperator   string
	condValue      string
	condGate       string
	condProductID  string
	condCategoryID string
	condEnabled    bool
)

var conditionCmd = &cobra.Command{
	Use:   "condition",
	Short: "Edit the conditions of a rule-set document",
	Long: `Add, remove and update conditions inside the groups of a local document.
Changes are saved to the file only; push the document to apply them.`,
}

var conditionAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Append a condition to a group",
	Long: `Append an enabled condition to a group. The first condition of a group
never carries a gate; later ones default to "and".

Examples:
  loyalty condition add welcome10.yaml --group <id> --type cart_total --operator greater_than --value 50
  loyalty condition add welcome10.yaml --group <id> --type product_purchased --operator equal_to --product sku-9 --gate or`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if condGroup == "" {
			return fmt.Errorf("--group is required")
		}
		tmpl := rules.ConditionTemplate{
			Type:       rules.ConditionType(condType),
			Operator:   rules.Operator(condOperator),
			Value:      condValue,
			LogicGate:  rules.LogicGate(condGate),
			ProductID:  condProductID,
			CategoryID: condCategoryID,
		}

		var added rules.Condition
		_, err := cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			if _, ok := rules.FindGroup(els, condGroup); !ok {
				return nil, fmt.Errorf("group '%s' not found", condGroup)
			}
			var out []rules.RuleElement
			out, added = rules.AddGroupCondition(els, condGroup, tmpl, ids.New)
			return out, nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Added condition %s to group %s\n", added.ID, condGroup)
		}
		return nil
	},
}

var conditionRemoveCmd = &cobra.Command{
	Use:   "remove <file> <condition-id>",
	Short: "Remove a condition",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[1]
		_, err := cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			groupID, ok := rules.GroupOfCondition(els, id)
			if !ok {
				return nil, fmt.Errorf("condition '%s' not found", id)
			}
			return rules.RemoveGroupCondition(els, groupID, id), nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Removed condition %s\n", id)
		}
		return nil
	},
}

var conditionUpdateCmd = &cobra.Command{
	Use:   "update <file> <condition-id>",
	Short: "Change fields of a condition",
	Long: `Change the given fields of a condition; fields without a flag keep their value.

Examples:
  loyalty condition update welcome10.yaml <id> --value 75
  loyalty condition update welcome10.yaml <id> --enabled=false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[1]
		patch := conditionPatchFromFlags(cmd)
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to update: set at least one of --type, --operator, --value, --gate, --product, --category, --enabled")
		}

		_, err := cli.EditDocument(args[0], func(els []rules.RuleElement) ([]rules.RuleElement, error) {
			groupID, ok := rules.GroupOfCondition(els, id)
			if !ok {
				return nil, fmt.Errorf("condition '%s' not found", id)
			}
			return rules.UpdateGroupCondition(els, groupID, id, patch), nil
		})
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Updated condition %s\n", id)
		}
		return nil
	},
}

// conditionPatchFromFlags sets only the fields whose flag was given.
func conditionPatchFromFlags(cmd *cobra.Command) rules.ConditionPatch {
	var p rules.ConditionPatch
	flags := cmd.Flags()
	if flags.Changed("type") {
		t := rules.ConditionType(condType)
		p.Type = &t
	}
	if flags.Changed("operator") {
		op := rules.Operator(condOperator)
		p.Operator = &op
	}
	if flags.Changed("value") {
		p.Value = &condValue
	}
	if flags.Changed("gate") {
		g := rules.LogicGate(condGate)
		p.LogicGate = &g
	}
	if flags.Changed("product") {
		p.ProductID = &condProductID
	}
	if flags.Changed("category") {
		p.CategoryID = &condCategoryID
	}
	if flags.Changed("enabled") {
		p.Enabled = &condEnabled
	}
	return p
}

func init() {
	rootCmd.AddCommand(conditionCmd)
	conditionCmd.AddCommand(conditionAddCmd)
	conditionCmd.AddCommand(conditionRemoveCmd)
	conditionCmd.AddCommand(conditionUpdateCmd)

	for _, c := range []*cobra.Command{conditionAddCmd, conditionUpdateCmd} {
		c.Flags().StringVar(&condType, "type", "", "Condition type (e.g. cart_total, location)")
		c.Flags().StringVar(&condOperator, "operator", "", "Operator (greater_than, less_than, equal_to)")
		c.Flags().StringVar(&condValue, "value", "", "Comparison value")
		c.Flags().StringVar(&condGate, "gate", "", "Gate joining the condition to the previous one (and, or)")
		c.Flags().StringVar(&condProductID, "product", "", "Product reference")
		c.Flags().StringVar(&condCategoryID, "category", "", "Category reference")
	}
	conditionAddCmd.Flags().StringVar(&condGroup, "group", "", "Group to append to")
	conditionUpdateCmd.Flags().BoolVar(&condEnabled, "enabled", true, "Whether the condition is evaluated")
}
