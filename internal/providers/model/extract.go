package model

import "strings"

// ExtractJSON pulls the first JSON value out of free-form model output.
// Order of attempts: fenced code block contents, then a balanced-bracket or
// balanced-brace span starting at the first '{' or '['. Surrounding prose is
// stripped. The function is a pure transform, so extraction is idempotent.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if fenced := extractFencedBlock(text); fenced != "" {
		text = fenced
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	span := balancedSpan(text[start:])
	if span == "" {
		return ""
	}
	return strings.TrimSpace(span)
}

// extractFencedBlock returns the contents of the first ``` fence, with an
// optional language word after the opening fence. Returns "" when the text
// carries no complete fence.
func extractFencedBlock(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return ""
	}
	rest := text[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		lang := strings.TrimSpace(rest[:nl])
		if lang == "" || isFenceLanguage(lang) {
			rest = rest[nl+1:]
		}
	}
	close := strings.Index(rest, "```")
	if close < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:close])
}

func isFenceLanguage(word string) bool {
	switch strings.ToLower(word) {
	case "json", "json5", "javascript", "js", "txt":
		return true
	default:
		return false
	}
}

// balancedSpan scans text (which must start with '{' or '[') and returns the
// shortest prefix that closes the opening bracket. Quoted strings and escape
// sequences are honored so braces inside copy text do not end the span.
func balancedSpan(text string) string {
	if text == "" {
		return ""
	}
	openChar := text[0]
	var closeChar byte
	switch openChar {
	case '{':
		closeChar = '}'
	case '[':
		closeChar = ']'
	default:
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
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
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
