package redaction

import "strings"

// sensitiveKeyNames are Event.content keys masked outright regardless of
// value shape — tool args/results legitimately carry fields named this
// way (e.g. a tool_call event recording `{"tool": "curl", "args": {"header":
// {"Authorization": "..."}}}`), and a regex sweep alone would miss a
// value that isn't itself secret-shaped (a short token, a test password).
var sensitiveKeyNames = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"api_key":       true,
	"apikey":        true,
	"access_token":  true,
	"auth_token":    true,
	"authorization": true,
	"private_key":   true,
	"secret_key":    true,
	"client_secret": true,
}

const maskedFieldValue = "[REDACTED]"

// FieldNameMasker walks a JSON-shaped map[string]any and masks string
// values under a sensitive key name, recursing into nested maps and
// slices the way the teacher's KubernetesSecretMasker recurses into
// nested YAML documents.
type FieldNameMasker struct{}

func (FieldNameMasker) Name() string { return "sensitive_field_name" }

func (m FieldNameMasker) MaskMap(content map[string]any) map[string]any {
	return m.maskValue(content).(map[string]any)
}

func (m FieldNameMasker) maskValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if isSensitiveKey(k) {
				out[k] = maskedFieldValue
				continue
			}
			out[k] = m.maskValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = m.maskValue(child)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	return sensitiveKeyNames[strings.ToLower(key)]
}
