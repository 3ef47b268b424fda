package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractContent pulls the generated text out of a model response body. raw
// may be a []byte, json.RawMessage, string or an already-decoded value. It
// never panics; shapes it does not recognise come back as indented JSON.
func ExtractContent(raw any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprint(raw)
		}
	}()

	var v any
	switch t := raw.(type) {
	case nil:
		return ""
	case []byte:
		obj, ok := decodeObject(string(t))
		if !ok {
			return string(t)
		}
		v = obj
	case json.RawMessage:
		obj, ok := decodeObject(string(t))
		if !ok {
			return string(t)
		}
		v = obj
	case string:
		obj, ok := decodeObject(t)
		if !ok {
			return t
		}
		v = obj
	case map[string]any:
		v = t
	default:
		// Round-trip structs and typed maps into generic values.
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return string(b)
		}
	}

	if obj, ok := v.(map[string]any); ok {
		if s, ok := chatContent(obj); ok {
			return s
		}
		if s, ok := responsesContent(obj); ok {
			return s
		}
		if s, ok := messagesContent(obj); ok {
			return s
		}
		for _, key := range []string{"response", "text"} {
			if s, ok := obj[key].(string); ok {
				return s
			}
		}
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// decodeObject decodes s only when it is a JSON object.
func decodeObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// choices[0].message.content
func chatContent(obj map[string]any) (string, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := msg["content"].(string)
	return s, ok
}

// output[type=message].content[type=output_text].text, else output[0].content.
func responsesContent(obj map[string]any) (string, bool) {
	output, ok := obj["output"].([]any)
	if !ok || len(output) == 0 {
		return "", false
	}
	for _, item := range output {
		m, ok := item.(map[string]any)
		if !ok || m["type"] != "message" {
			continue
		}
		parts, _ := m["content"].([]any)
		for _, p := range parts {
			pm, ok := p.(map[string]any)
			if !ok || pm["type"] != "output_text" {
				continue
			}
			if s, ok := pm["text"].(string); ok {
				return s, true
			}
		}
	}

	first, ok := output[0].(map[string]any)
	if !ok {
		return "", false
	}
	switch c := first["content"].(type) {
	case string:
		return c, true
	case []any:
		if len(c) > 0 {
			if pm, ok := c[0].(map[string]any); ok {
				if s, ok := pm["text"].(string); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

// content[type=text].text, concatenated.
func messagesContent(obj map[string]any) (string, bool) {
	blocks, ok := obj["content"].([]any)
	if !ok {
		return "", false
	}
	var (
		b     strings.Builder
		found bool
	)
	for _, blk := range blocks {
		m, ok := blk.(map[string]any)
		if !ok || m["type"] != "text" {
			continue
		}
		if s, ok := m["text"].(string); ok {
			b.WriteString(s)
			found = true
		}
	}
	return b.String(), found
}
