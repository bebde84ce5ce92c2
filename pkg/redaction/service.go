package redaction

// Service applies field-name masking then a regex sweep to event content.
// Created once at startup (the teacher's MaskingService is the same
// singleton, compile-patterns-eagerly shape); stateless aside from its
// compiled patterns, so one instance is shared across requests.
type Service struct {
	patterns []*compiledPattern
	fields   FieldNameMasker
}

// NewService compiles the built-in pattern set once.
func NewService() *Service {
	return &Service{patterns: compileBuiltinPatterns()}
}

// RedactContent returns a redacted copy of content: known-sensitive key
// names are masked outright (phase 1, structural), then every remaining
// string value anywhere in the structure is swept with the regex
// patterns (phase 2, general) — the same two-phase order the teacher's
// applyMasking uses (code maskers before regex).
func (s *Service) RedactContent(content map[string]any) map[string]any {
	if content == nil {
		return nil
	}
	masked := s.fields.MaskMap(content)
	return s.sweepValue(masked).(map[string]any)
}

// RedactText applies only the regex sweep, for flat text that has
// already passed through RedactContent (or never carried a key/value
// shape to begin with, e.g. a chunk's derived text).
func (s *Service) RedactText(text string) string {
	for _, p := range s.patterns {
		text = p.regex.ReplaceAllString(text, p.replacement)
	}
	return text
}

func (s *Service) sweepValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.RedactText(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = s.sweepValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = s.sweepValue(child)
		}
		return out
	default:
		return v
	}
}
