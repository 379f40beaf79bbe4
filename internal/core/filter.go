// Package core provides filtering of popup snapshots.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/popstack/internal/adapter/output"
	"github.com/jmylchreest/popstack/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// ordering reports whether op compares by magnitude.
func (op FilterOp) ordering() bool {
	switch op {
	case FilterOpGreater, FilterOpLess, FilterOpGreaterEq, FilterOpLessEq:
		return true
	default:
		return false
	}
}

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: type, anchor, id, payload, height, age
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	// Cached parsed values
	regex     *regexp.Regexp // Compiled regex for ~= operator
	number    float64        // Parsed height
	createdOp time.Time      // Parsed age cutoff
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseDuration parses a duration string with extended formats.
// Supports: 90s, 48h, 7d, 1w, 0 (no limit)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: type, anchor, id, payload, height, age
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "anchor=bottom" - bottom sheets only
//   - "type~toast" - type tag contains "toast"
//   - "payload~=(?i)saved" - payload matches regex
//   - "height>=200" - measured at 200 or more
//   - "age<1m" - shown within the last minute
func ParseFilter(expr string) (*FilterExpr, error) {
	if expr == "" {
		return &FilterExpr{}, nil
	}

	filter := &FilterExpr{
		Conditions: make([]FilterCondition, 0),
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "anchor=top" or "payload~saved"
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "="
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}

			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "type", "tag":
		c.Field = "type"
		if c.Operator.ordering() {
			return fmt.Errorf("type does not support %s", c.Operator)
		}
	case "anchor":
		if c.Operator != FilterOpEqual && c.Operator != FilterOpNotEqual {
			return fmt.Errorf("anchor supports only = and !=")
		}
		a, err := model.ParseAnchor(c.Value)
		if err != nil {
			return err
		}
		c.Value = a.String()
	case "id", "payload", "body":
		if c.Field == "body" {
			c.Field = "payload"
		}
		if c.Operator.ordering() {
			return fmt.Errorf("%s does not support %s", c.Field, c.Operator)
		}
	case "height", "h":
		c.Field = "height"
		if c.Operator == FilterOpContains || c.Operator == FilterOpRegex {
			return fmt.Errorf("height supports only =, !=, >, <, >= and <=")
		}
		n, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid height value: %s", c.Value)
		}
		c.number = n
	case "age":
		if !c.Operator.ordering() {
			return fmt.Errorf("age supports only >, <, >= and <=")
		}
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid age value: %w", err)
		}
		c.createdOp = time.Now().Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if a popup matches the filter expression.
// All conditions must match (AND logic).
func (f *FilterExpr) Match(p output.Popup) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(p) {
			return false
		}
	}
	return true
}

// Match tests if a popup matches this single condition.
func (c *FilterCondition) Match(p output.Popup) bool {
	switch c.Field {
	case "type":
		return c.matchString(p.Type)
	case "anchor":
		return c.matchString(p.Anchor)
	case "id":
		return c.matchString(p.ID)
	case "payload":
		if p.Payload == nil {
			return c.Operator == FilterOpNotEqual
		}
		return c.matchString(fmt.Sprint(p.Payload))
	case "height":
		// Unmeasured popups never satisfy a height condition
		if p.Height == nil {
			return false
		}
		return c.matchNumber(*p.Height)
	case "age":
		// Newer popups are younger, so "age<1m" means created after the cutoff
		return c.matchAge(p.CreatedAt)
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchNumber matches a numeric field.
func (c *FilterCondition) matchNumber(fieldValue float64) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.number
	case FilterOpNotEqual:
		return fieldValue != c.number
	case FilterOpGreater:
		return fieldValue > c.number
	case FilterOpLess:
		return fieldValue < c.number
	case FilterOpGreaterEq:
		return fieldValue >= c.number
	case FilterOpLessEq:
		return fieldValue <= c.number
	default:
		return false
	}
}

// matchAge matches a creation time against the age cutoff.
func (c *FilterCondition) matchAge(created time.Time) bool {
	switch c.Operator {
	case FilterOpLess:
		return created.After(c.createdOp)
	case FilterOpGreater:
		return created.Before(c.createdOp)
	case FilterOpLessEq:
		return created.After(c.createdOp) || created.Equal(c.createdOp)
	case FilterOpGreaterEq:
		return created.Before(c.createdOp) || created.Equal(c.createdOp)
	default:
		return false
	}
}

// FilterPopups filters popups using a filter expression, keeping stack order.
func FilterPopups(popups []output.Popup, expr *FilterExpr) []output.Popup {
	if expr == nil || len(expr.Conditions) == 0 {
		return popups
	}

	result := make([]output.Popup, 0, len(popups))
	for _, p := range popups {
		if expr.Match(p) {
			result = append(result, p)
		}
	}
	return result
}

// FilterSnapshots applies expr to the popups of every snapshot.
// Stack metadata is left untouched.
func FilterSnapshots(snaps []output.Snapshot, expr *FilterExpr) []output.Snapshot {
	if expr == nil || len(expr.Conditions) == 0 {
		return snaps
	}

	result := make([]output.Snapshot, len(snaps))
	for i, s := range snaps {
		s.Popups = FilterPopups(s.Popups, expr)
		result[i] = s
	}
	return result
}
