package validator

import "regexp"

// Pre-compiled patterns — compiled once at startup, never during a request.

// injectionPatterns flag attempts to override instructions, assume a new
// persona, or extract the system prompt.
var injectionPatterns = []struct {
	re     *regexp.Regexp
	threat string
}{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions|prompts|rules)`), "injection: instruction override"},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|rules|guidelines)`), "injection: instruction override"},
	{regexp.MustCompile(`(?i)forget\s+(all\s+|your\s+)*(previous|prior|above)?\s*(instructions|context|rules)`), "injection: instruction override"},
	{regexp.MustCompile(`(?i)ignore\s+all\s+instructions`), "injection: instruction override"},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+`), "injection: identity override"},
	{regexp.MustCompile(`(?i)from\s+now\s+on\s+you\s+(are|will|must|should)`), "injection: identity override"},
	{regexp.MustCompile(`(?i)your\s+new\s+(role|identity|persona|instructions)\s+(is|are)`), "injection: identity override"},
	{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)\s+`), "injection: role-play coercion"},
	{regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+(are|have|were)|an?\s+unrestricted)`), "injection: role-play coercion"},
	{regexp.MustCompile(`(?i)\bDAN\s+mode\b`), "injection: jailbreak persona"},
	{regexp.MustCompile(`(?i)do\s+anything\s+now`), "injection: jailbreak persona"},
	{regexp.MustCompile(`(?i)\bjailbreak\b`), "injection: jailbreak persona"},
	{regexp.MustCompile(`(?i)developer\s+mode`), "injection: jailbreak persona"},
	{regexp.MustCompile(`(?i)(reveal|show|print|output|repeat)\s+(me\s+)?(your|the)\s+(system\s+|initial\s+|original\s+|hidden\s+)?(prompt|instructions)`), "injection: system prompt disclosure"},
	{regexp.MustCompile(`(?i)what\s+(are|is|were)\s+your\s+(system\s+|initial\s+|original\s+)?(prompt|instructions|rules)`), "injection: system prompt disclosure"},
	{regexp.MustCompile(`(?i)bypass\s+(the\s+)?(safety|security|content)\s+(filter|check|policy|rules)`), "injection: safety bypass"},
	{regexp.MustCompile(`(?i)without\s+(any\s+)?(restrictions|limitations|filters|rules)`), "injection: safety bypass"},
	{regexp.MustCompile(`(?i)\[SYSTEM\]`), "injection: delimiter smuggling"},
	{regexp.MustCompile(`(?i)<\|im_start\|>`), "injection: delimiter smuggling"},
}

// extractionPatterns flag requests for credentials, PII, bulk data, or
// direct SQL manipulation.
var extractionPatterns = []struct {
	re     *regexp.Regexp
	threat string
}{
	{regexp.MustCompile(`(?i)\b(passwords?|credentials?|api[\s_-]?keys?|secret\s+keys?|access\s+tokens?)\b`), "info extraction: credential request"},
	{regexp.MustCompile(`(?i)\b(ssn|social\s+security\s+numbers?)\b`), "info extraction: PII request"},
	{regexp.MustCompile(`(?i)(all|every|each)\s+users?'?s?\s+(emails?|addresses|phone|data|records|accounts)`), "info extraction: bulk PII request"},
	{regexp.MustCompile(`(?i)(dump|export|list)\s+(the\s+)?(all\s+)?(database|db|tables?|users?)`), "info extraction: bulk data dump"},
	{regexp.MustCompile(`(?i)\bselect\s+.+\s+from\s+\w+`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)\b(drop|truncate)\s+table\b`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)\bdelete\s+from\b`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)\binsert\s+into\b`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)\bunion\s+select\b`), "info extraction: SQL manipulation"},
	{regexp.MustCompile(`(?i)(environment|env)\s+variables?`), "info extraction: configuration probe"},
	{regexp.MustCompile(`(?i)connection\s+string`), "info extraction: configuration probe"},
}

// allowlistPatterns are clearly on-topic fantasy-basketball phrasings. A
// single flagged signal is tolerated when one of these also matches.
var allowlistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bkeeper?s?\b`),
	regexp.MustCompile(`(?i)\bkeep\s+[A-Z][a-z]+`),
	regexp.MustCompile(`(?i)\badp\b`),
	regexp.MustCompile(`(?i)\btrade\b`),
	regexp.MustCompile(`(?i)\bpunt(ing)?\b`),
	regexp.MustCompile(`(?i)\bsleepers?\b`),
	regexp.MustCompile(`(?i)\bwaivers?\b`),
	regexp.MustCompile(`(?i)\broster\b`),
	regexp.MustCompile(`(?i)\bdraft(ing)?\b`),
	regexp.MustCompile(`(?i)\bdynasty\b`),
	regexp.MustCompile(`(?i)\bleague\b`),
	regexp.MustCompile(`(?i)\bmatchups?\b`),
	regexp.MustCompile(`(?i)\blineups?\b`),
	regexp.MustCompile(`(?i)\bstart\s+or\s+sit\b`),
	regexp.MustCompile(`(?i)\bfantasy\b`),
	regexp.MustCompile(`(?i)\b(rebounds?|assists?|steals?|blocks?|turnovers?|threes?)\b`),
	regexp.MustCompile(`(?i)\busage\s+rate\b`),
	regexp.MustCompile(`(?i)\bbox\s+scores?\b`),
	regexp.MustCompile(`(?i)\bbreakout\b`),
	regexp.MustCompile(`(?i)\binjury\s+(status|report)\b`),
	regexp.MustCompile(`(?i)\bstream(ing|er)?s?\b`),
	regexp.MustCompile(`(?i)\bplayoff\s+schedule\b`),
	regexp.MustCompile(`(?i)\brookies?\b`),
	regexp.MustCompile(`(?i)\bcategor(y|ies)\b`),
	regexp.MustCompile(`(?i)\bround\s+\d+\b`),
}

// Sanitization patterns.
var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	strippedChars = regexp.MustCompile("[<>{}`]")
	sqlKeywordRe  = regexp.MustCompile(`(?i)\b(select|drop|delete|update|insert|truncate|union)\b`)
)
