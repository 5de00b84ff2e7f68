package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "bare_object",
			text:   `{"a": 1}`,
			want:   `{"a": 1}`,
			wantOK: true,
		},
		{
			name:   "prose_wrapped",
			text:   "Here is the plan:\n```json\n{\"a\": 1}\n```\nLet me know.",
			want:   `{"a": 1}`,
			wantOK: true,
		},
		{
			name:   "nested_objects",
			text:   `{"a": {"b": {"c": 2}}} trailing`,
			want:   `{"a": {"b": {"c": 2}}}`,
			wantOK: true,
		},
		{
			name:   "braces_inside_strings",
			text:   `{"a": "closing } brace and { opening"} extra`,
			want:   `{"a": "closing } brace and { opening"}`,
			wantOK: true,
		},
		{
			name:   "escaped_quotes",
			text:   `{"a": "say \"}\" loudly"}`,
			want:   `{"a": "say \"}\" loudly"}`,
			wantOK: true,
		},
		{
			name:   "no_object",
			text:   "nothing to see here",
			wantOK: false,
		},
		{
			name:   "unbalanced",
			text:   `{"a": {"b": 1}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONObject(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeValidated(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["name", "score"],
		"properties": {
			"name": {"type": "string"},
			"score": {"type": "integer", "minimum": 1, "maximum": 10}
		}
	}`

	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	t.Run("valid", func(t *testing.T) {
		var p payload
		err := decodeValidated(`Sure! {"name": "TruckCo", "score": 8}`, schema, &p)
		require.NoError(t, err)
		assert.Equal(t, "TruckCo", p.Name)
		assert.Equal(t, 8, p.Score)
	})

	t.Run("missing_required_field", func(t *testing.T) {
		var p payload
		err := decodeValidated(`{"name": "TruckCo"}`, schema, &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation")
	})

	t.Run("out_of_range", func(t *testing.T) {
		var p payload
		err := decodeValidated(`{"name": "TruckCo", "score": 40}`, schema, &p)
		require.Error(t, err)
	})

	t.Run("no_json", func(t *testing.T) {
		var p payload
		err := decodeValidated(`I could not produce a plan.`, schema, &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no JSON object")
	})
}
