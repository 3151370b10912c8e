package decomposer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoSteps is returned when structured input decodes to an empty step list.
var ErrNoSteps = schemas.ErrNoSteps

// actionAliases maps vocabulary seen in model output onto the step actions.
var actionAliases = map[string]schemas.Action{
	"visit":    schemas.ActionVisit,
	"navigate": schemas.ActionVisit,
	"goto":     schemas.ActionVisit,
	"open":     schemas.ActionVisit,
	"click":    schemas.ActionClick,
	"tap":      schemas.ActionClick,
	"input":    schemas.ActionInput,
	"type":     schemas.ActionInput,
	"fill":     schemas.ActionInput,
	"scroll":   schemas.ActionScroll,
	"wait":     schemas.ActionWait,
	"sleep":    schemas.ActionWait,
	"pause":    schemas.ActionWait,
	"extract":  schemas.ActionExtract,
	"scrape":   schemas.ActionExtract,
	"read":     schemas.ActionExtract,
}

// rawStep is the loosely typed shape of one step in untrusted output.
// Numbers are accepted for value so {"action":"wait","value":500} decodes.
type rawStep struct {
	Action      string               `json:"action"`
	Description string               `json:"description"`
	Selector    *string              `json:"selector"`
	URL         *string              `json:"url"`
	Value       *jsoniter.RawMessage `json:"value"`
	Condition   *string              `json:"condition"`
}

type rawEnvelope struct {
	Steps []rawStep `json:"steps"`
}

// ParseStructured converts untrusted structured output (for example a model
// response) into validated steps. It accepts a JSON array of steps or an
// object with a "steps" array, optionally wrapped in a fenced code block.
func ParseStructured(raw []byte) ([]schemas.WorkflowStep, error) {
	payload := stripCodeFence(bytes.TrimSpace(raw))
	if len(payload) == 0 {
		return nil, ErrNoSteps
	}

	var rawSteps []rawStep
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &rawSteps); err != nil {
			return nil, fmt.Errorf("decomposer: malformed step array: %w", err)
		}
	case '{':
		var env rawEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("decomposer: malformed step object: %w", err)
		}
		rawSteps = env.Steps
	default:
		return nil, fmt.Errorf("decomposer: expected a JSON array or object of steps")
	}

	if len(rawSteps) == 0 {
		return nil, ErrNoSteps
	}

	steps := make([]schemas.WorkflowStep, 0, len(rawSteps))
	for i, rs := range rawSteps {
		step, err := rs.normalize()
		if err != nil {
			return nil, &schemas.StepValidationError{Index: i, Err: err}
		}
		steps = append(steps, step)
	}
	if err := schemas.ValidateSteps(steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func (rs rawStep) normalize() (schemas.WorkflowStep, error) {
	name := strings.ToLower(strings.TrimSpace(rs.Action))
	action, ok := actionAliases[name]
	if !ok {
		return schemas.WorkflowStep{}, &schemas.UnknownActionError{Action: schemas.Action(rs.Action)}
	}

	value, err := rawValue(rs.Value)
	if err != nil {
		return schemas.WorkflowStep{}, err
	}

	desc := strings.TrimSpace(rs.Description)
	if desc == "" {
		desc = defaultDescription(action)
	}
	return schemas.WorkflowStep{
		Action:      action,
		Description: desc,
		Selector:    rs.Selector,
		URL:         rs.URL,
		Value:       value,
		Condition:   rs.Condition,
	}, nil
}

// rawValue accepts a JSON string or number; null and absence both mean no value.
func rawValue(msg *jsoniter.RawMessage) (*string, error) {
	if msg == nil {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(*msg)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return &s, nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, fmt.Errorf("value must be a string or number")
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	return &s, nil
}

func defaultDescription(a schemas.Action) string {
	switch a {
	case schemas.ActionVisit:
		return "Navigate to page"
	case schemas.ActionClick:
		return "Click element"
	case schemas.ActionInput:
		return "Type into field"
	case schemas.ActionScroll:
		return "Scroll page"
	case schemas.ActionWait:
		return "Wait"
	case schemas.ActionExtract:
		return "Extract content"
	}
	return string(a)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = b[3:]
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[nl+1:]
	} else {
		return nil
	}
	if end := bytes.LastIndex(b, []byte("```")); end >= 0 {
		b = b[:end]
	}
	return bytes.TrimSpace(b)
}
