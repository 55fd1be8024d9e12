package services

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"
)

// Condition operators
const (
	OpAnd = "and"
	OpOr  = "or"

	OpIsNotEmpty         = "isNotEmpty"
	OpIsEmpty            = "isEmpty"
	OpEquals             = "equals"
	OpNotEquals          = "notEquals"
	OpGreaterThan        = "greaterThan"
	OpGreaterThanOrEqual = "greaterThanOrEqual"
	OpLessThan           = "lessThan"
	OpLessThanOrEqual    = "lessThanOrEqual"
	OpContains           = "contains"
	OpStartsWith         = "startsWith"
	OpEndsWith           = "endsWith"
	OpIsValidEmail       = "isValidEmail"
	OpIsValidPhone       = "isValidPhone"
	OpMatchesPattern     = "matchesPattern"

	OpHasMinimumCount      = "hasMinimumCount"
	OpHasMaximumCount      = "hasMaximumCount"
	OpHasExactCount        = "hasExactCount"
	OpHasVerifiedDocuments = "hasVerifiedDocuments"
	OpAllDocumentsVerified = "allDocumentsVerified"
	OpHasDocumentType      = "hasDocumentType"
)

// Computed fields resolved by the evaluator instead of path lookup
const (
	FieldDocuments         = "documents"
	FieldDebtToIncomeRatio = "debtToIncomeRatio"
	FieldCollateralRatio   = "collateralRatio"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]+$`)
)

// leafOperators is the set of operators valid on a leaf condition.
// The value is true when the operator requires a comparison value.
var leafOperators = map[string]bool{
	OpIsNotEmpty:           false,
	OpIsEmpty:              false,
	OpEquals:               true,
	OpNotEquals:            true,
	OpGreaterThan:          true,
	OpGreaterThanOrEqual:   true,
	OpLessThan:             true,
	OpLessThanOrEqual:      true,
	OpContains:             true,
	OpStartsWith:           true,
	OpEndsWith:             true,
	OpIsValidEmail:         false,
	OpIsValidPhone:         false,
	OpMatchesPattern:       true,
	OpHasMinimumCount:      true,
	OpHasMaximumCount:      true,
	OpHasExactCount:        true,
	OpHasVerifiedDocuments: false,
	OpAllDocumentsVerified: false,
	OpHasDocumentType:      true,
}

// Condition is a rule condition tree node. A composite node carries
// Operator "and"/"or" plus Conditions; a leaf carries Field, Operator
// and an optional Value. The two shapes are mutually exclusive.
type Condition struct {
	Field      string      `json:"field,omitempty"`
	Operator   string      `json:"operator"`
	Value      interface{} `json:"value,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// IsComposite reports whether the node is an and/or group
func (c *Condition) IsComposite() bool {
	return c.Operator == OpAnd || c.Operator == OpOr
}

// Validate checks the tree shape. Malformed rules are rejected here,
// when the rule is saved, so evaluation never sees a bad tree.
func (c *Condition) Validate() error {
	if c.IsComposite() {
		if c.Field != "" {
			return fmt.Errorf("%w: %q group must not set a field", domain.ErrRuleConditionInvalid, c.Operator)
		}
		if len(c.Conditions) == 0 {
			return fmt.Errorf("%w: %q group needs at least one condition", domain.ErrRuleConditionInvalid, c.Operator)
		}
		for i := range c.Conditions {
			if err := c.Conditions[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	}

	if len(c.Conditions) > 0 {
		return fmt.Errorf("%w: leaf condition must not nest conditions", domain.ErrRuleConditionInvalid)
	}
	if c.Field == "" {
		return fmt.Errorf("%w: leaf condition needs a field", domain.ErrRuleConditionInvalid)
	}
	needsValue, known := leafOperators[c.Operator]
	if !known {
		return fmt.Errorf("%w: unknown operator %q", domain.ErrRuleConditionInvalid, c.Operator)
	}
	if needsValue && c.Value == nil {
		return fmt.Errorf("%w: operator %q needs a value", domain.ErrRuleConditionInvalid, c.Operator)
	}
	return nil
}

// ParseCondition decodes and validates a stored condition tree
func ParseCondition(raw string) (*Condition, error) {
	var cond Condition
	if err := json.Unmarshal([]byte(raw), &cond); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRuleConditionInvalid, err)
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return &cond, nil
}

// ConditionEvaluator evaluates condition trees against lead data
type ConditionEvaluator struct{}

// NewConditionEvaluator creates a new condition evaluator
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{}
}

// Evaluate walks the condition tree. "and" requires every child true,
// "or" at least one.
func (e *ConditionEvaluator) Evaluate(cond *Condition, leadData map[string]interface{}, documents []models.LeadDocument) bool {
	switch cond.Operator {
	case OpAnd:
		for i := range cond.Conditions {
			if !e.Evaluate(&cond.Conditions[i], leadData, documents) {
				return false
			}
		}
		return true
	case OpOr:
		for i := range cond.Conditions {
			if e.Evaluate(&cond.Conditions[i], leadData, documents) {
				return true
			}
		}
		return false
	default:
		return e.evaluateLeaf(cond, leadData, documents)
	}
}

// evaluateLeaf evaluates a single field condition
func (e *ConditionEvaluator) evaluateLeaf(cond *Condition, leadData map[string]interface{}, documents []models.LeadDocument) bool {
	// Document operators work on the attachment list, not field data
	switch cond.Operator {
	case OpHasMinimumCount:
		want, ok := toNumber(cond.Value)
		return ok && float64(len(documents)) >= want
	case OpHasMaximumCount:
		want, ok := toNumber(cond.Value)
		return ok && float64(len(documents)) <= want
	case OpHasExactCount:
		want, ok := toNumber(cond.Value)
		return ok && float64(len(documents)) == want
	case OpHasVerifiedDocuments:
		for _, doc := range documents {
			if doc.Status == models.DocStatusVerified {
				return true
			}
		}
		return false
	case OpAllDocumentsVerified:
		if len(documents) == 0 {
			return false
		}
		for _, doc := range documents {
			if doc.Status != models.DocStatusVerified {
				return false
			}
		}
		return true
	case OpHasDocumentType:
		want := strings.ToLower(toString(cond.Value))
		for _, doc := range documents {
			if strings.ToLower(doc.Type) == want || strings.ToLower(doc.Category) == want {
				return true
			}
		}
		return false
	}

	actual, ok := e.resolveField(cond.Field, leadData, documents)
	if !ok {
		// Incomplete financial data: refuse to assess rather than guess
		return false
	}

	switch cond.Operator {
	case OpIsNotEmpty:
		return !isEmptyValue(actual)
	case OpIsEmpty:
		return isEmptyValue(actual)
	case OpEquals:
		return looseEquals(actual, cond.Value)
	case OpNotEquals:
		return !looseEquals(actual, cond.Value)
	case OpGreaterThan:
		return compareNumbers(actual, cond.Value, func(a, b float64) bool { return a > b })
	case OpGreaterThanOrEqual:
		return compareNumbers(actual, cond.Value, func(a, b float64) bool { return a >= b })
	case OpLessThan:
		return compareNumbers(actual, cond.Value, func(a, b float64) bool { return a < b })
	case OpLessThanOrEqual:
		return compareNumbers(actual, cond.Value, func(a, b float64) bool { return a <= b })
	case OpContains:
		return strings.Contains(lowerString(actual), strings.ToLower(toString(cond.Value)))
	case OpStartsWith:
		return strings.HasPrefix(lowerString(actual), strings.ToLower(toString(cond.Value)))
	case OpEndsWith:
		return strings.HasSuffix(lowerString(actual), strings.ToLower(toString(cond.Value)))
	case OpIsValidEmail:
		return emailPattern.MatchString(toString(actual))
	case OpIsValidPhone:
		return phonePattern.MatchString(toString(actual))
	case OpMatchesPattern:
		pattern, err := regexp.Compile(toString(cond.Value))
		if err != nil {
			log.Printf("⚠️ Invalid rule pattern %q: %v", toString(cond.Value), err)
			return false
		}
		return pattern.MatchString(toString(actual))
	default:
		log.Printf("⚠️ Unknown rule operator %q", cond.Operator)
		return false
	}
}

// resolveField resolves a condition field to a value. Computed fields
// return ok=false when their inputs are zero, which fails the condition.
func (e *ConditionEvaluator) resolveField(field string, leadData map[string]interface{}, documents []models.LeadDocument) (interface{}, bool) {
	switch field {
	case FieldDocuments:
		return len(documents), true
	case FieldDebtToIncomeRatio:
		income, _ := toNumber(leadData["monthlyIncome"])
		debt, _ := toNumber(leadData["totalDebt"])
		if income == 0 || debt == 0 {
			return nil, false
		}
		return debt / (income * 12), true
	case FieldCollateralRatio:
		collateral, _ := toNumber(leadData["collateralValue"])
		requested, _ := toNumber(leadData["requestedAmount"])
		if collateral == 0 || requested == 0 {
			return nil, false
		}
		return collateral / requested, true
	default:
		return resolvePath(leadData, field), true
	}
}

// resolvePath walks dot-separated path segments into nested maps.
// A missing segment yields nil, never an error.
func resolvePath(data map[string]interface{}, path string) interface{} {
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[segment]
	}
	return current
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// looseEquals compares numerically when both sides are numbers,
// otherwise as case-insensitive strings. A missing field never equals
// anything.
func looseEquals(actual, expected interface{}) bool {
	if actual == nil {
		return false
	}
	a, aok := toNumber(actual)
	b, bok := toNumber(expected)
	if aok && bok {
		return a == b
	}
	return strings.EqualFold(toString(actual), toString(expected))
}

func compareNumbers(actual, expected interface{}, cmp func(a, b float64) bool) bool {
	a, aok := toNumber(actual)
	b, bok := toNumber(expected)
	if !aok || !bok {
		return false
	}
	return cmp(a, b)
}

func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func lowerString(v interface{}) string {
	return strings.ToLower(toString(v))
}
