package decomposer

import (
	"fmt"
	"strings"
)

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is assembled with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// cssString quotes s as a double-quoted CSS string.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// clickableByText targets buttons, links and button-like inputs whose visible
// text (or value) contains label.
func clickableByText(label string) string {
	lit := xpathLiteral(label)
	return fmt.Sprintf(
		`//*[self::button or self::a or @role="button"][contains(normalize-space(.), %[1]s)] | //input[@type="submit" or @type="button"][contains(@value, %[1]s)]`,
		lit,
	)
}

// fieldByName targets input and textarea elements whose placeholder or name
// attribute contains field, case-insensitively.
func fieldByName(field string) string {
	q := cssString(field)
	parts := make([]string, 0, 4)
	for _, tag := range []string{"input", "textarea"} {
		for _, attr := range []string{"placeholder", "name"} {
			parts = append(parts, fmt.Sprintf("%s[%s*=%s i]", tag, attr, q))
		}
	}
	return strings.Join(parts, ", ")
}
