package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	e := NewEngine()

	result, err := e.Evaluate("amount * 0.2", map[string]interface{}{"amount": 100.0})
	require.NoError(t, err)
	assert.Equal(t, 20.0, result)

	result, err = e.Evaluate(`first + " " + last`, map[string]interface{}{"first": "Jane", "last": "Doe"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", result)
}

func TestEvaluateUndefinedVariableIsNil(t *testing.T) {
	e := NewEngine()

	// Documents are sparse; a missing key evaluates as nil instead of failing
	result, err := e.Evaluate("missing == nil", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestEvaluateOrNilSwallowsFailures(t *testing.T) {
	e := NewEngine()

	assert.Nil(t, e.EvaluateOrNil("1 +", map[string]interface{}{}))
	assert.Equal(t, 3, e.EvaluateOrNil("1 + 2", map[string]interface{}{}))
}

func TestValidate(t *testing.T) {
	e := NewEngine()

	assert.NoError(t, e.Validate("amount > 100 ? 'big' : 'small'"))
	assert.Error(t, e.Validate("amount >"))
}

func TestCompileCaching(t *testing.T) {
	e := NewEngine()

	p1, err := e.Compile("a + b")
	require.NoError(t, err)
	p2, err := e.Compile("a + b")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}
