package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

func TestEvalBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		vars Vars
		want bool
	}{
		{"row field", `row.status == "draft"`, Vars{Row: map[string]any{"status": "draft"}}, true},
		{"struct row", `row.title.startsWith("Go")`, Vars{Row: post{Title: "Go tips"}}, true},
		{"user permission", `"posts.edit" in user.permissions`, Vars{User: map[string]any{"permissions": []any{"posts.edit"}}}, true},
		{"value", `value > 10`, Vars{Value: 12}, true},
		{"false", `row.status == "published"`, Vars{Row: map[string]any{"status": "draft"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvalBool(tt.expr, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalBoolRejectsNonBoolean(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvalBool(`"yes"`, Vars{})
	require.Error(t, err)
}

func TestEvalTransformsValue(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	out, err := eval.Eval(`value.upperAscii()`, Vars{Value: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", out)

	out, err = eval.Eval(`[value, value]`, Vars{Value: "a"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "a"}, out)
}

func TestCheckReportsCompileErrors(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	require.NoError(t, eval.Check(`row.id > 0`))
	require.Error(t, eval.Check(`row.id >`))
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
