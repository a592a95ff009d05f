package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate("{{upper .name}} has {{.steps}} steps left", map[string]any{"name": "bot", "steps": 3})
	require.NoError(t, err)
	assert.Equal(t, "BOT has 3 steps left", out)

	out, err = RenderTemplate(`{{default "n/a" .missing}}`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "n/a", out)

	out, err = RenderTemplate("[{{.missing}}]", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[<no value>]", out)

	out, err = RenderTemplate(`[{{default "" .missing}}]`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}

func TestValidateParameters_NumberKinds(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"n":    map[string]any{"type": "number"},
			"i":    map[string]any{"type": "integer"},
			"b":    map[string]any{"type": "boolean"},
			"arr":  map[string]any{"type": "array"},
			"obj":  map[string]any{"type": "object"},
			"free": map[string]any{},
		},
	}

	assert.NoError(t, ValidateParameters(map[string]any{
		"n": 1.5, "i": 2.0, "b": true, "arr": []any{1}, "obj": map[string]any{}, "free": "x", "extra": 1,
	}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"i": 2.5}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"b": "yes"}, schema))
}

func TestValidateParameters_RequiredShapes(t *testing.T) {
	assert.Error(t, ValidateParameters(map[string]any{}, map[string]any{"required": []string{"a"}}))
	assert.Error(t, ValidateParameters(map[string]any{}, map[string]any{"required": []any{"a"}}))
	assert.NoError(t, ValidateParameters(map[string]any{"a": 1}, map[string]any{"required": []string{"a"}}))
}
