package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

var (
	// ErrNotFound is returned when the server has no rule set for the owner.
	ErrNotFound = errors.New("rule set not found")
	// ErrStale is returned when an If-Match save lost to a concurrent edit.
	ErrStale = errors.New("rule set was modified since it was loaded")
)

// APIError is a non-2xx response from the loyalty API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrStale:
		return e.StatusCode == http.StatusPreconditionFailed
	}
	return false
}

// RuleSet is one owner's rule sequence as returned by the API.
type RuleSet struct {
	Kind      store.OwnerKind `json:"kind" yaml:"kind"`
	OwnerID   string          `json:"ownerId" yaml:"ownerId"`
	Elements  rules.Elements  `json:"elements" yaml:"-"`
	ETag      string          `json:"etag" yaml:"etag,omitempty"`
	UpdatedAt string          `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// ValidationReport is the result of a dry-run validation.
type ValidationReport struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Client is an HTTP client for the loyalty rule-set API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) ruleSetURL(kind store.OwnerKind, ownerID string, suffix ...string) string {
	u := c.BaseURL + "/v1/rulesets/" + url.PathEscape(string(kind))
	if ownerID != "" {
		u += "/" + url.PathEscape(ownerID)
	}
	for _, s := range suffix {
		u += "/" + s
	}
	return u
}

// GetRuleSet retrieves the rule set of one owner.
func (c *Client) GetRuleSet(ctx context.Context, kind store.OwnerKind, ownerID string) (*RuleSet, error) {
	var rs RuleSet
	if err := c.do(ctx, http.MethodGet, c.ruleSetURL(kind, ownerID), nil, nil, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListRuleSets retrieves all rule sets of an owner kind.
func (c *Client) ListRuleSets(ctx context.Context, kind store.OwnerKind) ([]RuleSet, error) {
	var result struct {
		RuleSets []RuleSet `json:"ruleSets"`
	}
	if err := c.do(ctx, http.MethodGet, c.ruleSetURL(kind, ""), nil, nil, &result); err != nil {
		return nil, err
	}
	return result.RuleSets, nil
}

// SaveRuleSet replaces the rule set of an owner. A non-empty ifMatch makes the
// save conditional; a lost race returns an error matching ErrStale.
func (c *Client) SaveRuleSet(ctx context.Context, kind store.OwnerKind, ownerID string, elements []rules.RuleElement, ifMatch string) (*RuleSet, error) {
	body := struct {
		Elements rules.Elements `json:"elements"`
	}{Elements: elements}

	var headers map[string]string
	if ifMatch != "" {
		headers = map[string]string{"If-Match": ifMatch}
	}

	var rs RuleSet
	if err := c.do(ctx, http.MethodPut, c.ruleSetURL(kind, ownerID), body, headers, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ValidateRuleSet runs the server-side checks without saving.
func (c *Client) ValidateRuleSet(ctx context.Context, kind store.OwnerKind, ownerID string, elements []rules.RuleElement) (*ValidationReport, error) {
	body := struct {
		Elements rules.Elements `json:"elements"`
	}{Elements: elements}

	var report ValidationReport
	if err := c.do(ctx, http.MethodPost, c.ruleSetURL(kind, ownerID, "validate"), body, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteRuleSet removes the rule set of an owner. Deleting a missing rule set succeeds.
func (c *Client) DeleteRuleSet(ctx context.Context, kind store.OwnerKind, ownerID string) error {
	return c.do(ctx, http.MethodDelete, c.ruleSetURL(kind, ownerID), nil, nil, nil)
}

// do sends one request; out may be nil when the response has no body.
func (c *Client) do(ctx context.Context, method, u string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}

	var structured struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
	}
	if json.Unmarshal(bodyBytes, &structured) == nil && structured.Message != "" {
		apiErr.Message = structured.Message
		apiErr.Code = structured.Code
		apiErr.Fields = structured.Fields
	}
	return apiErr
}
