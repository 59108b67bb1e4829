package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goloyalty/internal/client"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// Document is the on-disk form of one rule set. The CLI edits it locally;
// nothing reaches the server until it is pushed.
type Document struct {
	Kind    store.OwnerKind       `json:"kind" yaml:"kind"`
	OwnerID string                `json:"ownerId" yaml:"ownerId"`
	ETag    string                `json:"etag,omitempty" yaml:"etag,omitempty"`
	Records []rules.StorageRecord `json:"elements" yaml:"elements"`
}

// NewDocument returns an empty rule set for an owner.
func NewDocument(kind store.OwnerKind, ownerID string) *Document {
	return &Document{Kind: kind, OwnerID: ownerID, Records: []rules.StorageRecord{}}
}

// DocumentFromRuleSet converts a rule set fetched from the API.
func DocumentFromRuleSet(rs *client.RuleSet) *Document {
	doc := NewDocument(rs.Kind, rs.OwnerID)
	doc.ETag = rs.ETag
	doc.SetElements(rs.Elements)
	return doc
}

// Elements decodes the document records into rule elements.
func (d *Document) Elements() ([]rules.RuleElement, error) {
	return rules.FromStorage(d.Records)
}

// SetElements replaces the records. Missing ids stay missing; the server
// assigns them on push.
func (d *Document) SetElements(elements []rules.RuleElement) {
	records := rules.ToStorage(elements, func() string { return "" })
	if records == nil {
		records = []rules.StorageRecord{}
	}
	d.Records = records
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// LoadDocument reads a .json, .yaml or .yml rule-set file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc Document
	if isJSON(path) {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if !doc.Kind.Valid() {
		return nil, fmt.Errorf("%s: unknown kind '%s' (want campaign, coupon or product_rule)", path, doc.Kind)
	}
	if doc.OwnerID == "" {
		return nil, fmt.Errorf("%s: ownerId is required", path)
	}
	if doc.Records == nil {
		doc.Records = []rules.StorageRecord{}
	}
	if _, err := doc.Elements(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &doc, nil
}

// SaveDocument writes doc to path, choosing JSON or YAML by extension.
func SaveDocument(path string, doc *Document) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ValidateDocument runs the structural rule-set checks for the document's kind.
func ValidateDocument(doc *Document) error {
	elements, err := doc.Elements()
	if err != nil {
		return err
	}
	return rules.ValidateRuleSet(doc.Kind.Feature(), elements)
}

// EditDocument loads path, applies fn to its elements and writes the result
// back. The file is left untouched when fn fails.
func EditDocument(path string, fn func([]rules.RuleElement) ([]rules.RuleElement, error)) (*Document, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	elements, err := doc.Elements()
	if err != nil {
		return nil, err
	}
	edited, err := fn(elements)
	if err != nil {
		return nil, err
	}
	doc.SetElements(edited)
	if err := SaveDocument(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
