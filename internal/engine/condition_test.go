package engine

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/mocks"
)

func TestParseCondition(t *testing.T) {
	testCases := []struct {
		text     string
		kind     conditionKind
		negate   bool
		selector string
		variable string
		op       string
	}{
		{text: "#login exists", kind: condSelectorExists, selector: "#login"},
		{text: "  div.banner > a   not exists ", kind: condSelectorExists, selector: "div.banner > a", negate: true},
		{text: `//button[text()="Go"] exists`, kind: condSelectorExists, selector: `//button[text()="Go"]`},
		{text: "${token} exists", kind: condVariableExists, variable: "token"},
		{text: "${token} not exists", kind: condVariableExists, variable: "token", negate: true},
		{text: "${title} == 'Home'", kind: condCompare, variable: "title", op: "=="},
		{text: `${title}!="Home"`, kind: condCompare, variable: "title", op: "!="},
		{text: "${a} contains ${b}", kind: condCompare, variable: "a", op: "contains"},
	}
	for _, tc := range testCases {
		c, err := ParseCondition(tc.text, false)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.kind, c.kind, tc.text)
		assert.Equal(t, tc.negate, c.negate, tc.text)
		assert.Equal(t, tc.selector, c.selector, tc.text)
		assert.Equal(t, tc.variable, c.variable, tc.text)
		assert.Equal(t, tc.op, c.op, tc.text)
	}
}

func TestParseCondition_Rejected(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"document.cookie.length > 0",
		"${title} == Home",
		"${title} > 'a'",
	} {
		_, err := ParseCondition(text, false)
		assert.ErrorIs(t, err, ErrUnsupportedCondition, "text %q", text)
	}

	c, err := ParseCondition("document.cookie.length > 0", true)
	require.NoError(t, err)
	assert.Equal(t, condScript, c.kind)

	_, err = ParseCondition("${title} == Home", true)
	assert.Error(t, err, "a malformed comparison is not reinterpreted as a script")
}

func TestCondition_EvaluateVariables(t *testing.T) {
	vars := NewVariableStore()
	vars.Set("title", "Welcome home")
	vars.Set("expected", "Welcome home")

	testCases := []struct {
		text string
		want bool
	}{
		{"${title} exists", true},
		{"${other} exists", false},
		{"${other} not exists", true},
		{"${title} == 'Welcome home'", true},
		{"${title} == ${expected}", true},
		{"${title} != 'Welcome home'", false},
		{`${title} contains "home"`, true},
		{"${title} contains 'away'", false},
		{"${other} == ''", true},
	}
	for _, tc := range testCases {
		c, err := ParseCondition(tc.text, false)
		require.NoError(t, err, tc.text)
		got, err := c.Evaluate(context.Background(), nil, vars, true)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestCondition_EvaluateSelector(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("EvaluateScript", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, `"#item-42"`)
	})).Return(stdjson.RawMessage("true"), nil)

	vars := NewVariableStore()
	vars.Set("id", "42")
	c, err := ParseCondition("#item-${id} exists", false)
	require.NoError(t, err)

	ok, err := c.Evaluate(context.Background(), page, vars, true)
	require.NoError(t, err)
	assert.True(t, ok)
	page.AssertExpectations(t)
}

func TestCondition_NonBooleanResult(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("EvaluateScript", mock.Anything, mock.Anything).Return(stdjson.RawMessage(`"yes"`), nil)
	c, err := ParseCondition("#a exists", false)
	require.NoError(t, err)
	_, err = c.Evaluate(context.Background(), page, NewVariableStore(), false)
	assert.Error(t, err)
}

func TestExistsScript(t *testing.T) {
	script := existsScript(`a[title="say \"hi\""]`)
	assert.Contains(t, script, `const sel = "a[title=\"say \\\"hi\\\"\"]";`)
	assert.Contains(t, script, "document.querySelector(sel)")
	assert.Contains(t, script, "document.evaluate(sel")
}

func TestVariableStore(t *testing.T) {
	vars := NewVariableStore()
	assert.Equal(t, "no ${vars} here", vars.Interpolate("no ${vars} here"))

	vars.Set("name", "Ada")
	vars.Set("user.id", "7")
	assert.Equal(t, "Ada (7) ${missing} $name", vars.Interpolate("${name} (${user.id}) ${missing} $name"))

	v, ok := vars.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
	_, ok = vars.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"name", "user.id"}, vars.Names())
	snap := vars.Snapshot()
	snap["name"] = "changed"
	v, _ = vars.Get("name")
	assert.Equal(t, "Ada", v, "snapshots are copies")
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		err  error
		want ErrorCode
	}{
		{&TargetNotFoundError{Selector: "#a"}, ErrCodeElementNotFound},
		{fmt.Errorf("wrapped: %w", browser.ErrTargetNotFound), ErrCodeElementNotFound},
		{context.DeadlineExceeded, ErrCodeTimeout},
		{&NavigationError{URL: "u", Err: context.DeadlineExceeded}, ErrCodeTimeout},
		{&NavigationError{URL: "u", Err: errors.New("boom")}, ErrCodeNavigation},
		{errors.New("net::ERR_CONNECTION_REFUSED"), ErrCodeNavigation},
		{errors.New("operation timeout"), ErrCodeTimeout},
		{&ConditionError{Condition: "x", Err: errors.New("bad")}, ErrCodeCondition},
		{&CancelledError{Cause: context.Canceled}, ErrCodeCancelled},
		{errors.New("socket closed"), ErrCodeDispatch},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, classify(tc.err), "error %v", tc.err)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("disk full")))
	assert.Equal(t, ErrCodeValidation, CodeOf(&ValidationError{StepIndex: 2, Err: errors.New("x")}))
	assert.Equal(t, ErrCodeCancelled, CodeOf(fmt.Errorf("outer: %w", context.Canceled)))
	wrapped := fmt.Errorf("runner: %w", &ExecutionError{StepIndex: 1, Code: ErrCodeTimeout, Cause: context.DeadlineExceeded})
	assert.Equal(t, ErrCodeTimeout, CodeOf(wrapped))
}
