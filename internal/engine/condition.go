package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/Kisii856/task-automation-platform/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	varExistsPattern  = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}\s+(not\s+)?exists$`)
	comparePattern    = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}\s*(==|!=|\bcontains\b)\s*(.+)$`)
	varOperandPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}$`)
	selectorPattern   = regexp.MustCompile(`^(.+?)\s+(not\s+)?exists$`)
)

type conditionKind int

const (
	condSelectorExists conditionKind = iota
	condVariableExists
	condCompare
	condScript
)

// operand is either a literal or a variable reference.
type operand struct {
	literal  string
	variable string
}

func (o operand) resolve(vars *VariableStore) string {
	if o.variable == "" {
		return o.literal
	}
	v, _ := vars.Get(o.variable)
	return v
}

// Condition is a parsed step condition.
type Condition struct {
	raw      string
	kind     conditionKind
	negate   bool
	selector string
	variable string
	op       string
	right    operand
}

// String returns the condition as written.
func (c Condition) String() string { return c.raw }

// ParseCondition parses a condition string. Supported forms are
//
//	<selector> exists
//	<selector> not exists
//	${name} exists
//	${name} not exists
//	${name} == 'literal'      (also "literal" or ${other})
//	${name} != 'literal'
//	${name} contains 'literal'
//
// Any other text is a page script, accepted only when allowScript is set.
func ParseCondition(text string, allowScript bool) (Condition, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Condition{}, fmt.Errorf("%w: empty condition", ErrUnsupportedCondition)
	}

	if m := varExistsPattern.FindStringSubmatch(s); m != nil {
		return Condition{raw: s, kind: condVariableExists, variable: m[1], negate: m[2] != ""}, nil
	}
	if m := comparePattern.FindStringSubmatch(s); m != nil {
		right, err := parseOperand(strings.TrimSpace(m[3]))
		if err != nil {
			return Condition{}, err
		}
		return Condition{raw: s, kind: condCompare, variable: m[1], op: m[2], right: right}, nil
	}
	if m := selectorPattern.FindStringSubmatch(s); m != nil && !strings.HasPrefix(m[1], "${") {
		return Condition{raw: s, kind: condSelectorExists, selector: strings.TrimSpace(m[1]), negate: m[2] != ""}, nil
	}
	if allowScript {
		return Condition{raw: s, kind: condScript}, nil
	}
	return Condition{}, fmt.Errorf("%w: %q", ErrUnsupportedCondition, s)
}

func parseOperand(s string) (operand, error) {
	if m := varOperandPattern.FindStringSubmatch(s); m != nil {
		return operand{variable: m[1]}, nil
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return operand{literal: s[1 : len(s)-1]}, nil
	}
	return operand{}, fmt.Errorf("%w: right operand %q must be a quoted literal or ${name}", ErrUnsupportedCondition, s)
}

// Evaluate reports whether the condition holds against the page and the
// run's variables. Selectors are interpolated when interpolate is set.
func (c Condition) Evaluate(ctx context.Context, page browser.Page, vars *VariableStore, interpolate bool) (bool, error) {
	switch c.kind {
	case condVariableExists:
		_, ok := vars.Get(c.variable)
		return ok != c.negate, nil

	case condCompare:
		left, _ := vars.Get(c.variable)
		right := c.right.resolve(vars)
		switch c.op {
		case "==":
			return left == right, nil
		case "!=":
			return left != right, nil
		default:
			return strings.Contains(left, right), nil
		}

	case condSelectorExists:
		selector := c.selector
		if interpolate {
			selector = vars.Interpolate(selector)
		}
		found, err := evaluateBool(ctx, page, existsScript(selector))
		if err != nil {
			return false, err
		}
		return found != c.negate, nil

	case condScript:
		return evaluateBool(ctx, page, "!!("+c.raw+")")
	}
	return false, fmt.Errorf("unknown condition kind %d", c.kind)
}

func evaluateBool(ctx context.Context, page browser.Page, script string) (bool, error) {
	raw, err := page.EvaluateScript(ctx, script)
	if err != nil {
		return false, err
	}
	var out bool
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, fmt.Errorf("condition did not evaluate to a boolean: %s", string(raw))
	}
	return out, nil
}

// existsScript checks for a CSS or XPath match. XPath expressions start with '/' or '('.
func existsScript(selector string) string {
	encoded, _ := json.MarshalToString(selector)
	return fmt.Sprintf(`(() => {
	const sel = %s;
	if (sel.startsWith("/") || sel.startsWith("(")) {
		return document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue !== null;
	}
	return document.querySelector(sel) !== null;
})()`, encoded)
}
