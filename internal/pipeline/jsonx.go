package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// firstJSONObject locates the first balanced top-level {...} block in a
// model response. Models wrap JSON in explanatory prose or code fences;
// anything outside the first object is discarded.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeValidated extracts the first JSON object from a model response,
// validates it against the given JSON Schema, and unmarshals it into v.
// Model output is an untrusted payload; nothing downstream sees it until
// it passes the schema.
func decodeValidated(text, schema string, v any) error {
	raw, ok := firstJSONObject(text)
	if !ok {
		return eris.New("no JSON object found in model response")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return eris.Wrap(err, "schema validation")
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return eris.Errorf("model response failed schema validation: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return eris.Wrap(err, "unmarshal model response")
	}
	return nil
}
