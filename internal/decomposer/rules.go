package decomposer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

var (
	urlPattern    = regexp.MustCompile(`(?i)https?://\S+`)
	searchPattern = regexp.MustCompile(`(?i)\bsearch\b`)
	searchPrefix  = regexp.MustCompile(`(?i)^search(?:\s+for)?(?:\s+|$)`)
	clickPattern  = regexp.MustCompile(`(?i)\bclick\b(?:\s+on\b)?\s*`)
	typedPattern  = regexp.MustCompile(`(?i)\b(?:type|enter)\s+("[^"]*"|'[^']*'|\S+(?:\s+\S+)*?)\s+(?:in|into)\s+(?:the\s+)?("[^"]*"|'[^']*'|\S+)`)
	hasTypeIntent = regexp.MustCompile(`(?i)\b(?:type|enter)\b`)
	quotedPhrase  = regexp.MustCompile(`^(?:"([^"]*)"|'([^']*)')`)

	// clauseBreak ends a bare phrase where the next instruction begins.
	clauseBreak = regexp.MustCompile(`(?i)\s+(?:and|then)\s+|[,;!?]|\.(?:\s|$)`)
	// intentBreak ends a search query only where a click or typing
	// instruction begins, so "salt and pepper" stays whole.
	intentBreak = regexp.MustCompile(`(?i)(?:\s*(?:[,;]|\band\b|\bthen\b))*\s*\b(?:click|type|enter)\b`)
)

// Rules holds the targets the rule-based decomposer falls back on.
type Rules struct {
	// SearchURL is visited before a search when the task names no URL.
	SearchURL string
	// SearchInputSelector locates the search engine's query field.
	SearchInputSelector string
	// SearchSubmitSelector locates the search engine's submit control.
	SearchSubmitSelector string
	// DefaultURL is visited when no rule produced a step.
	DefaultURL string
}

// DefaultRules targets Google, matching the selectors the runner has always used.
func DefaultRules() Rules {
	return Rules{
		SearchURL:            "https://www.google.com",
		SearchInputSelector:  `textarea[name="q"], input[name="q"]`,
		SearchSubmitSelector: `input[type="submit"], button[type="submit"]`,
		DefaultURL:           "https://www.google.com",
	}
}

// Decompose maps task text to steps with the default rules.
func Decompose(text string) []schemas.WorkflowStep {
	return DefaultRules().Decompose(text)
}

// Decompose maps free text to an ordered step sequence. Each rule runs against
// the full text and appends its steps in fixed order: url, search, click,
// typed value, then the fallback when nothing matched. The result is never empty.
func (r Rules) Decompose(text string) []schemas.WorkflowStep {
	r = r.withDefaults()
	var steps []schemas.WorkflowStep

	visited := false
	if u := urlPattern.FindString(text); u != "" {
		steps = append(steps, visitStep(u, fmt.Sprintf("Navigate to %s", u)))
		visited = true
	}

	if loc := searchPattern.FindStringIndex(text); loc != nil {
		query := extractSearchQuery(text[loc[0]:])
		if !visited {
			steps = append(steps, visitStep(r.SearchURL, "Open search engine"))
		}
		steps = append(steps,
			schemas.WorkflowStep{
				Action:      schemas.ActionInput,
				Description: fmt.Sprintf("Search for %q", query),
				Selector:    schemas.String(r.SearchInputSelector),
				Value:       schemas.String(query),
			},
			schemas.WorkflowStep{
				Action:      schemas.ActionClick,
				Description: "Submit search",
				Selector:    schemas.String(r.SearchSubmitSelector),
			},
		)
	}

	if label, ok := extractClickLabel(text); ok {
		steps = append(steps, schemas.WorkflowStep{
			Action:      schemas.ActionClick,
			Description: fmt.Sprintf("Click %q", label),
			Selector:    schemas.String(clickableByText(label)),
		})
	}

	if value, field, ok := extractTypedValue(text); ok {
		steps = append(steps, schemas.WorkflowStep{
			Action:      schemas.ActionInput,
			Description: fmt.Sprintf("Type %q into %s", value, field),
			Selector:    schemas.String(fieldByName(field)),
			Value:       schemas.String(value),
		})
	}

	steps = keepValid(steps)
	if len(steps) == 0 {
		steps = append(steps, visitStep(r.DefaultURL, "Navigate to default page"))
	}
	return steps
}

func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.SearchURL == "" {
		r.SearchURL = d.SearchURL
	}
	if r.SearchInputSelector == "" {
		r.SearchInputSelector = d.SearchInputSelector
	}
	if r.SearchSubmitSelector == "" {
		r.SearchSubmitSelector = d.SearchSubmitSelector
	}
	if r.DefaultURL == "" {
		r.DefaultURL = d.DefaultURL
	}
	return r
}

func visitStep(url, description string) schemas.WorkflowStep {
	return schemas.WorkflowStep{
		Action:      schemas.ActionVisit,
		Description: description,
		URL:         schemas.String(url),
	}
}

// extractSearchQuery strips the "search for " / "search " lead from rest and
// returns the remainder, up to a following click or typing instruction. It
// may be empty.
func extractSearchQuery(rest string) string {
	rest = strings.TrimSpace(searchPrefix.ReplaceAllString(rest, ""))
	if m := quotedPhrase.FindStringSubmatch(rest); m != nil {
		return m[1] + m[2]
	}
	if loc := intentBreak.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), ".!?"))
}

// extractClickLabel returns the quoted or bare phrase following "click" or "click on".
func extractClickLabel(text string) (string, bool) {
	loc := clickPattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if m := quotedPhrase.FindStringSubmatch(rest); m != nil {
		label := strings.TrimSpace(m[1] + m[2])
		return label, label != ""
	}
	label := trimArticle(firstClause(rest))
	for _, suffix := range []string{" button", " link"} {
		if len(label) > len(suffix) && strings.EqualFold(label[len(label)-len(suffix):], suffix) {
			label = label[:len(label)-len(suffix)]
		}
	}
	return label, label != ""
}

// extractTypedValue matches "(type|enter) <value> (in|into) <field>".
func extractTypedValue(text string) (value, field string, ok bool) {
	if !hasTypeIntent.MatchString(text) {
		return "", "", false
	}
	m := typedPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	value = unquote(m[1])
	field = unquote(strings.TrimRight(m[2], ",;.!?"))
	if field == "" {
		return "", "", false
	}
	return value, field, true
}

func trimArticle(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "the ") {
		return strings.TrimSpace(s[4:])
	}
	return s
}

func firstClause(s string) string {
	if loc := clauseBreak.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func keepValid(steps []schemas.WorkflowStep) []schemas.WorkflowStep {
	out := steps[:0]
	for _, s := range steps {
		if s.Validate() == nil {
			out = append(out, s)
		}
	}
	return out
}
