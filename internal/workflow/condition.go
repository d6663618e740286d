package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoComparison means the condition holds no numeric comparison.
	ErrNoComparison = errors.New("no numeric comparison in condition")
	// ErrUnresolvedParam means a referenced parameter is not available.
	ErrUnresolvedParam = errors.New("unresolved parameter reference")
)

// Operand is a number literal or a parameter reference. References may be
// written as ${key}, $json.key, $json["key"], {{ $json.key }} or a bare key.
type Operand struct {
	Ref   string
	Value float64
}

// IsRef reports whether the operand refers to a parameter.
func (o Operand) IsRef() bool { return o.Ref != "" }

func (o Operand) resolve(params ParamSource) (float64, error) {
	if !o.IsRef() {
		return o.Value, nil
	}
	if params != nil {
		if v, ok := params.Lookup(o.Ref); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnresolvedParam, o.Ref)
}

// Comparison is a single binary numeric comparison.
type Comparison struct {
	Left  Operand
	Op    string
	Right Operand
}

// Eval applies the operator to the resolved operands.
func (c Comparison) Eval(params ParamSource) (bool, error) {
	l, err := c.Left.resolve(params)
	if err != nil {
		return false, err
	}
	r, err := c.Right.resolve(params)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	}
	return false, fmt.Errorf("unsupported operator %q", c.Op)
}

// Condition is a parsed gate condition: every numeric comparison found in
// the text, in order.
type Condition struct {
	Source      string
	Comparisons []Comparison
}

const (
	identPattern   = `[A-Za-z_][A-Za-z0-9_]*`
	operandPattern = `(\{\{\s*\$json\.` + identPattern + `\s*\}\}` +
		`|\$json\.` + identPattern +
		`|\$json\[["']` + identPattern + `["']\]` +
		`|\$\{` + identPattern + `\}` +
		`|[-+]?\d+(?:\.\d+)?` +
		`|` + identPattern + `)`
)

var (
	comparisonPattern = regexp.MustCompile(operandPattern + `\s*(==|!=|>=|<=|>|<)\s*` + operandPattern)
	refName           = regexp.MustCompile(identPattern + `$`)
	bareIdent         = regexp.MustCompile(`^` + identPattern + `$`)
	bracketRef        = regexp.MustCompile(`\$json\[["'](` + identPattern + `)["']\]`)
)

// ParseCondition extracts the comparisons of a condition string. Text that
// is not part of a comparison is ignored.
func ParseCondition(s string) (*Condition, error) {
	matches := comparisonPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil, ErrNoComparison
	}
	c := &Condition{Source: s, Comparisons: make([]Comparison, 0, len(matches))}
	for _, m := range matches {
		left, err := parseOperand(m[1])
		if err != nil {
			return nil, err
		}
		right, err := parseOperand(m[3])
		if err != nil {
			return nil, err
		}
		c.Comparisons = append(c.Comparisons, Comparison{Left: left, Op: m[2], Right: right})
	}
	return c, nil
}

func parseOperand(tok string) (Operand, error) {
	tok = strings.TrimSpace(tok)
	switch {
	case strings.HasPrefix(tok, "{{"):
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}"))
		return Operand{Ref: strings.TrimPrefix(inner, "$json.")}, nil
	case strings.HasPrefix(tok, "$json["):
		m := bracketRef.FindStringSubmatch(tok)
		return Operand{Ref: m[1]}, nil
	case strings.HasPrefix(tok, "$json."):
		return Operand{Ref: strings.TrimPrefix(tok, "$json.")}, nil
	case strings.HasPrefix(tok, "${"):
		return Operand{Ref: refName.FindString(strings.TrimSuffix(tok, "}"))}, nil
	case bareIdent.MatchString(tok):
		return Operand{Ref: tok}, nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return Operand{}, fmt.Errorf("parse operand %q: %w", tok, err)
	}
	return Operand{Value: v}, nil
}

// Eval evaluates the first comparison whose operands all resolve.
func (c *Condition) Eval(params ParamSource) (bool, error) {
	var firstErr error
	for _, cmp := range c.Comparisons {
		ok, err := cmp.Eval(params)
		if err == nil {
			return ok, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = ErrNoComparison
	}
	return false, firstErr
}
