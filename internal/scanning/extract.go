package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSONFound means the model response contained no bracket-delimited
	// structure at all
	ErrNoJSONFound = errors.New("no JSON found in model response")

	// ErrMalformedJSON means the response contained brackets but the slice
	// still failed to parse after repair
	ErrMalformedJSON = errors.New("malformed JSON in model response")
)

// repair is a single textual fixup applied to a candidate JSON slice
type repair struct {
	name  string
	apply func(string) string
}

var (
	trailingCommaRe    = regexp.MustCompile(`,\s*([\]}])`)
	whitespaceRunRe    = regexp.MustCompile(`\s+`)
	spaceBeforeCloseRe = regexp.MustCompile(`\s+("})`)
	spaceAfterCloseRe  = regexp.MustCompile(`(}")\s+`)
)

// repairs is the fixed sequence of textual repairs applied to the extracted
// slice. The order matters: later repairs assume earlier ones already ran
// (whitespace collapse must precede the quote-adjacent trims).
var repairs = []repair{
	{"trim space", strings.TrimSpace},
	{"strip trailing commas", func(s string) string {
		return trailingCommaRe.ReplaceAllString(s, "$1")
	}},
	{"drop newlines", func(s string) string {
		s = strings.ReplaceAll(s, "\r", "")
		return strings.ReplaceAll(s, "\n", "")
	}},
	{"collapse whitespace", func(s string) string {
		return whitespaceRunRe.ReplaceAllString(s, " ")
	}},
	{"trim before closing quote", func(s string) string {
		return spaceBeforeCloseRe.ReplaceAllString(s, "$1")
	}},
	{"trim after closing brace", func(s string) string {
		return spaceAfterCloseRe.ReplaceAllString(s, "$1")
	}},
}

// sliceJSON cuts the bracket-delimited region out of the raw model text.
// Array form is preferred; the legacy object-keyed form is a fallback.
func sliceJSON(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start != -1 && end > start {
		return text[start : end+1], nil
	}

	start = strings.Index(text, "{")
	end = strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1], nil
	}

	return "", ErrNoJSONFound
}

// extractJSON recovers a parseable JSON document from arbitrary model
// output, applying the repair sequence to whatever sits between the
// outermost brackets
func extractJSON(text string) (json.RawMessage, error) {
	slice, err := sliceJSON(text)
	if err != nil {
		return nil, err
	}

	for _, r := range repairs {
		slice = r.apply(slice)
	}

	var probe any
	if err := json.Unmarshal([]byte(slice), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	return json.RawMessage(slice), nil
}
