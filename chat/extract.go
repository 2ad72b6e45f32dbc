package chat

import "strings"

// Delimiters around a complete revised notes document inside an assistant reply.
const (
	OpenDelimiter  = "[REVISED_PROMPT]"
	CloseDelimiter = "[/REVISED_PROMPT]"
)

// Extraction is the result of Extract.
type Extraction struct {
	// CleanText is the reply with the matched block removed, or the input unchanged when nothing matched.
	CleanText string
	// Payload is the trimmed interior of the first block.
	Payload string
	Found   bool
}

// Extract splits a finished reply into visible text and an optional revised document.
// Only the leftmost opening delimiter and the nearest closing delimiter after it count;
// any later blocks stay in CleanText verbatim. It never fails.
func Extract(fullText string) Extraction {
	start := strings.Index(fullText, OpenDelimiter)
	if start < 0 {
		return Extraction{CleanText: fullText}
	}
	bodyStart := start + len(OpenDelimiter)
	end := strings.Index(fullText[bodyStart:], CloseDelimiter)
	if end < 0 {
		return Extraction{CleanText: fullText}
	}
	end += bodyStart

	return Extraction{
		CleanText: strings.TrimSpace(fullText[:start] + fullText[end+len(CloseDelimiter):]),
		Payload:   strings.TrimSpace(fullText[bodyStart:end]),
		Found:     true,
	}
}

// Wrap surrounds a document with the delimiter pair.
func Wrap(payload string) string {
	return OpenDelimiter + payload + CloseDelimiter
}
