// Package outfilter scans and redacts outbound agent responses. Secrets and
// PII are replaced with typed redaction tokens; responses that describe the
// system's own instructions are discarded wholesale.
package outfilter

import (
	"strings"

	"go.uber.org/zap"
)

// LeakRefusal replaces a response that leaked prompt or instruction details.
const LeakRefusal = "I can't share details about how I work, but I'm happy to help with your fantasy basketball questions!"

// Severity classifies a leak. Only critical leaks make a response unsafe;
// info leaks are redacted cosmetically and the response continues.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityCritical
)

// Leak records one redaction or detection made during filtering.
type Leak struct {
	Type     string
	Severity Severity
}

// Result is the outcome of one filtering run.
type Result struct {
	Filtered string
	Safe     bool
	Leaks    []Leak
}

// Describe renders a leak list as strings for response metadata.
func Describe(leaks []Leak) []string {
	out := make([]string, len(leaks))
	for i, l := range leaks {
		out[i] = "leak: " + l.Type
	}
	return out
}

// HasCritical reports whether any leak in the list is critical.
func HasCritical(leaks []Leak) bool {
	for _, l := range leaks {
		if l.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Descriptions renders the leak list as strings for response metadata.
func (r Result) Descriptions() []string {
	return Describe(r.Leaks)
}

// Filter scans outbound text for leaked secrets, PII, prompt disclosure, and
// technical detail. Stateless and safe for concurrent use.
type Filter struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Filter {
	return &Filter{logger: logger}
}

// Filter redacts the response and reports what it found.
//
// Prompt-leakage phrases take priority: one hit discards any partial
// redaction and returns the fixed refusal, because a response narrating its
// own instructions is compromised as a whole. Everything else redacts in
// place — forbidden patterns as critical leaks, technical terms and
// structural matches as cosmetic ones. Safe means no critical leak fired.
func (f *Filter) Filter(response string) Result {
	if response == "" {
		return Result{Filtered: response, Safe: true}
	}

	lowered := strings.ToLower(response)
	for _, phrase := range promptLeakPhrases {
		if strings.Contains(lowered, phrase) {
			f.logger.Error("prompt leakage in agent response",
				zap.String("phrase", phrase),
			)
			return Result{
				Filtered: LeakRefusal,
				Safe:     false,
				Leaks:    []Leak{{Type: "prompt_leakage: " + phrase, Severity: SeverityCritical}},
			}
		}
	}

	var leaks []Leak
	filtered := response

	for _, p := range forbiddenPatterns {
		if !p.re.MatchString(filtered) {
			continue
		}
		filtered = p.re.ReplaceAllString(filtered, "[REDACTED_"+p.token+"]")
		leaks = append(leaks, Leak{Type: p.token, Severity: SeverityCritical})
		f.logger.Error("sensitive data in agent response",
			zap.String("type", p.token),
		)
	}

	if technicalTermRe.MatchString(filtered) {
		filtered = technicalTermRe.ReplaceAllString(filtered, "[TECHNICAL_DETAIL]")
		leaks = append(leaks, Leak{Type: "technical_detail", Severity: SeverityInfo})
	}

	filtered, structural := redactStructural(filtered)
	leaks = append(leaks, structural...)

	return Result{Filtered: filtered, Safe: !HasCritical(leaks), Leaks: leaks}
}

// redactStructural is the final shape-based pass: filesystem paths,
// environment-variable syntax, registry hosts. Credential-bearing URLs are
// already gone by now — they are a forbidden pattern.
func redactStructural(text string) (string, []Leak) {
	var leaks []Leak

	if registryHostRe.MatchString(text) {
		text = registryHostRe.ReplaceAllString(text, "[REGISTRY_HOST]")
		leaks = append(leaks, Leak{Type: "registry_host", Severity: SeverityInfo})
	}
	if filePathRe.MatchString(text) {
		text = filePathRe.ReplaceAllStringFunc(text, func(m string) string {
			idx := strings.Index(m, "/")
			return m[:idx] + "[FILE_PATH]"
		})
		leaks = append(leaks, Leak{Type: "file_path", Severity: SeverityInfo})
	}
	if envVarRe.MatchString(text) {
		text = envVarRe.ReplaceAllString(text, "[ENV_VAR]")
		leaks = append(leaks, Leak{Type: "env_var", Severity: SeverityInfo})
	}

	return text, leaks
}
