package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goloyalty/internal/client"
	"github.com/TimurManjosov/goloyalty/internal/rules"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ruleSetSummary is one row of a rule-set listing.
type ruleSetSummary struct {
	Kind       string `json:"kind" yaml:"kind"`
	OwnerID    string `json:"ownerId" yaml:"ownerId"`
	Groups     int    `json:"groups" yaml:"groups"`
	Conditions int    `json:"conditions" yaml:"conditions"`
	ETag       string `json:"etag" yaml:"etag"`
	UpdatedAt  string `json:"updatedAt" yaml:"updatedAt"`
}

func summarize(rs client.RuleSet) ruleSetSummary {
	groups, conds := rules.Flatten(rs.Elements)
	return ruleSetSummary{
		Kind:       string(rs.Kind),
		OwnerID:    rs.OwnerID,
		Groups:     len(groups),
		Conditions: len(conds),
		ETag:       rs.ETag,
		UpdatedAt:  rs.UpdatedAt,
	}
}

// PrintRuleSets outputs a listing of rule sets in the specified format
func PrintRuleSets(w io.Writer, sets []client.RuleSet, format OutputFormat) error {
	rows := make([]ruleSetSummary, 0, len(sets))
	for _, rs := range sets {
		rows = append(rows, summarize(rs))
	}

	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]ruleSetSummary{"ruleSets": rows})
	case FormatYAML:
		return printYAML(w, rows)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Kind", "Owner", "Groups", "Conditions", "ETag", "Updated At")
		for _, r := range rows {
			if err := table.Append(r.Kind, r.OwnerID, strconv.Itoa(r.Groups), strconv.Itoa(r.Conditions), r.ETag, r.UpdatedAt); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintDocument outputs one rule set in the specified format. The table
// form has one row per condition, with operators between groups.
func PrintDocument(w io.Writer, doc *Document, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, doc)
	case FormatYAML:
		return printYAML(w, doc)
	case FormatTable:
		return printDocumentTable(w, doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printDocumentTable(w io.Writer, doc *Document) error {
	table := tablewriter.NewWriter(w)
	table.Header("Element", "ID", "Match/Gate", "Condition", "Operator", "Value", "Enabled")

	for _, rec := range doc.Records {
		switch rec.Type {
		case rules.ElementGroupOperator:
			if err := table.Append("operator", rec.ID, string(rec.Operator), "", "", "", ""); err != nil {
				return err
			}
		case rules.ElementGroup:
			if len(rec.Conditions) == 0 {
				if err := table.Append("group", rec.ID, string(rec.Match), "(empty)", "", "", ""); err != nil {
					return err
				}
				continue
			}
			for i, c := range rec.Conditions {
				element, gate := "", string(c.LogicGate)
				if i == 0 {
					element, gate = "group "+rec.ID, string(rec.Match)
				}
				if err := table.Append(element, c.ID, gate, string(c.Type), string(c.Operator), displayValue(c), strconv.FormatBool(c.Enabled)); err != nil {
					return err
				}
			}
		}
	}
	return table.Render()
}

// displayValue shows the product or category reference when the value is empty.
func displayValue(c rules.Condition) string {
	switch {
	case c.Value != "":
		return c.Value
	case c.ProductID != "":
		return "product:" + c.ProductID
	case c.CategoryID != "":
		return "category:" + c.CategoryID
	}
	return ""
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}
