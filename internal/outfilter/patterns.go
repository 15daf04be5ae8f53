package outfilter

import "regexp"

// forbiddenPatterns are hard leaks: any match makes the response unsafe (the
// match is still redacted so a caller that ignores the verdict never sees the
// raw value). Applied in order — earlier patterns consume their match before
// later ones run.
var forbiddenPatterns = []struct {
	re    *regexp.Regexp
	token string // rendered as [REDACTED_<token>]
}{
	{regexp.MustCompile(`(?i)\b(api[_\s-]?key|password|passwd|token|secret)\s*[:=]\s*\S+`), "CREDENTIAL"},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-_.=]+`), "BEARER_TOKEN"},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9]{8,}\b`), "API_KEY"},
	{regexp.MustCompile(`\b(postgresql|postgres|mongodb|redis|mysql)://\S+`), "DB_URL"},
	// Before EMAIL: the userinfo of user:pass@host URLs would otherwise be
	// consumed as an address and lose the URL context.
	{regexp.MustCompile(`\b[a-z][a-z0-9+\-.]*://[^\s/:@]+:[^\s/:@]+@\S+`), "CREDENTIAL_URL"},
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), "EMAIL"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "SSN"},
	{regexp.MustCompile(`\b(?:\d[ \-]?){13,19}\b`), "CARD_NUMBER"},
	{regexp.MustCompile(`\b[A-Za-z0-9+/=_\-]{32,}\b`), "OPAQUE_STRING"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "IP_ADDRESS"},
}

// promptLeakPhrases indicate the response is describing its own
// instructions. Any hit means the whole response is compromised, so partial
// redaction is pointless — the caller gets the fixed refusal instead.
// Matched against the lowercased response.
var promptLeakPhrases = []string{
	"my instructions",
	"my system prompt",
	"system prompt",
	"system message",
	"i was told to",
	"i was instructed",
	"i am programmed",
	"i'm programmed",
	"my programming",
	"my guidelines",
	"my configuration",
	"according to my prompt",
	"as per my instructions",
}

// technicalTerms reveal implementation details without being secrets in
// themselves. Redacted to [TECHNICAL_DETAIL]; the response stays usable.
var technicalTermRe = regexp.MustCompile(`(?i)\b(fastapi|langchain|sqlalchemy|pydantic|uvicorn|postgresql|postgres|neo4j|pinecone|chromadb|openai|anthropic|docker|kubernetes|localhost|traceback|stack trace)\b|\.env\b`)

// Structural redactions — a final pass over shapes rather than known values.
var (
	filePathRe     = regexp.MustCompile(`(?:^|\s)((?:/[A-Za-z0-9_.\-]+){2,})`)
	envVarRe       = regexp.MustCompile(`\$[A-Z_][A-Z0-9_]+|%[A-Z_][A-Z0-9_]+%`)
	registryHostRe = regexp.MustCompile(`\b[\w.\-]*(?:docker\.io|gcr\.io|azurecr\.io|quay\.io|dkr\.ecr\.[\w\-]+\.amazonaws\.com)\S*`)
)
