package redaction

import (
	"log/slog"
	"regexp"
)

// pattern is a built-in regex rule. Description mirrors the teacher's
// MaskingPattern comment but there is no per-server override surface
// here, so it is a fixed list rather than config-driven.
type pattern struct {
	name        string
	regex       string
	replacement string
}

// builtinPatterns is pruned from the teacher's initBuiltinMaskingPatterns
// down to the entries that make sense outside a Kubernetes context —
// dropping the certificate/CA-data patterns, which only ever matched
// manifest fields this service never stores.
var builtinPatterns = []pattern{
	{name: "api_key", regex: `(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`, replacement: `"api_key": "[MASKED_API_KEY]"`},
	{name: "password", regex: `(?i)(?:password|pwd|pass)["']?\s*[:=]\s*["']?([^"'\s\n]{6,})["']?`, replacement: `"password": "[MASKED_PASSWORD]"`},
	{name: "token", regex: `(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, replacement: `"token": "[MASKED_TOKEN]"`},
	{name: "private_key", regex: `(?i)(?:private[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`},
	{name: "secret_key", regex: `(?i)(?:secret[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, replacement: `"secret_key": "[MASKED_SECRET_KEY]"`},
	{name: "aws_access_key", regex: `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["']?\s*[:=]\s*["']?(AKIA[A-Z0-9]{16})["']?`, replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`},
	{name: "aws_secret_key", regex: `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`, replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`},
	{name: "github_token", regex: `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`, replacement: `[MASKED_GITHUB_TOKEN]`},
	{name: "slack_token", regex: `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`, replacement: `[MASKED_SLACK_TOKEN]`},
	{name: "ssh_key", regex: `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`, replacement: `[MASKED_SSH_KEY]`},
	{name: "email", regex: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`, replacement: `[MASKED_EMAIL]`},
}

// compiledPattern is a pre-compiled regex rule ready for ReplaceAllString.
type compiledPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// compileBuiltinPatterns compiles every builtinPatterns entry, logging and
// skipping any that fail to compile rather than failing startup — the
// same fail-soft posture the teacher's compileBuiltinPatterns uses.
func compileBuiltinPatterns() []*compiledPattern {
	compiled := make([]*compiledPattern, 0, len(builtinPatterns))
	for _, p := range builtinPatterns {
		re, err := regexp.Compile(p.regex)
		if err != nil {
			slog.Error("failed to compile redaction pattern, skipping", "pattern", p.name, "error", err)
			continue
		}
		compiled = append(compiled, &compiledPattern{name: p.name, regex: re, replacement: p.replacement})
	}
	return compiled
}
