// Package redaction scrubs likely secrets out of event content before it
// is persisted or derived into chunks, for events at or above the
// configured sensitivity floor (§4.2). Adapted from the teacher's
// pkg/masking, which does the same two-phase job (structural masker, then
// a regex sweep) for Kubernetes manifests; this service has no
// Kubernetes-shaped payloads, so the structural side targets this
// domain's own structure instead: arbitrary JSON content keyed by field
// name (api_key, password, token, ...).
package redaction

// Masker is a code-based masker with structural awareness beyond what a
// regex sweep can express — here, walking a map[string]any by key name
// rather than parsing YAML/JSON documents, but the same two-method shape
// the teacher's Masker interface uses.
type Masker interface {
	// Name identifies this masker for logging.
	Name() string

	// MaskMap returns a copy of content with sensitive values replaced.
	// Must be defensive: never panic on unexpected value shapes.
	MaskMap(content map[string]any) map[string]any
}
