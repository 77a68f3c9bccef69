// Package parse recovers structured records from free-form model output.
// Models are instructed to answer with a bare JSON array but routinely wrap
// it in prose, markdown fences, or a single-key object, so extraction walks
// an ordered chain of fallback strategies and callers treat total failure
// as an empty result rather than an error worth surfacing to users.
package parse

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoArray is returned when no strategy recovers a JSON array.
var ErrNoArray = errors.New("no JSON array found in model response")

// Array extracts a JSON array of records from raw model text. Strategies
// are tried in order, stopping at the first that yields an array:
//
//  1. the whole trimmed text as an array, or as an object carrying the
//     array under one of wrapFields
//  2. the first '[' through the last ']' in the text
//  3. the interior of a fenced code block, optionally tagged json
//  4. the first '{' through the last '}' as an object, taking its first
//     array-valued field
//
// Element validation is the caller's job; Array only locates the array.
func Array(raw string, wrapFields ...string) ([]json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoArray
	}

	if items, ok := asArray(raw); ok {
		return items, nil
	}
	if items, ok := wrappedArray(raw, wrapFields); ok {
		return items, nil
	}

	if s := between(raw, '[', ']'); s != "" {
		if items, ok := asArray(s); ok {
			return items, nil
		}
	}

	if block := fencedBlock(raw); block != "" {
		if items, ok := asArray(block); ok {
			return items, nil
		}
		if items, ok := wrappedArray(block, wrapFields); ok {
			return items, nil
		}
	}

	if s := between(raw, '{', '}'); s != "" {
		if items, ok := firstArrayField(s); ok {
			return items, nil
		}
	}

	return nil, ErrNoArray
}

func asArray(s string) ([]json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	return items, true
}

func wrappedArray(s string, fields []string) ([]json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	for _, f := range fields {
		if v, ok := obj[f]; ok {
			if items, ok := asArray(string(v)); ok {
				return items, true
			}
		}
	}
	return nil, false
}

// between returns the substring from the first open byte through the last
// close byte, spanning newlines. Empty when the pair is absent or inverted.
func between(s string, open, close byte) string {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j <= i {
		return ""
	}
	return s[i : j+1]
}

// fencedBlock returns the interior of the first ``` fence, with an optional
// json tag stripped.
func fencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return ""
	}
	body := s[start+3:]
	end := strings.Index(body, "```")
	if end < 0 {
		return ""
	}
	body = strings.TrimSpace(body[:end])
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// firstArrayField parses s as an object and returns its first array-valued
// field in document order.
func firstArrayField(s string) ([]json.RawMessage, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, false
		}
		if items, ok := asArray(string(val)); ok {
			return items, true
		}
	}
	return nil, false
}

// Clean trims s and collapses internal runs of whitespace to single spaces.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripBySuffix removes a trailing "by <author>" from a title when it
// duplicates the record's own author field.
func StripBySuffix(title, author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return title
	}
	suffix := "by " + author
	if len(title) <= len(suffix) {
		return title
	}
	tail := title[len(title)-len(suffix):]
	if !strings.EqualFold(tail, suffix) {
		return title
	}
	head := strings.TrimSpace(title[:len(title)-len(suffix)])
	head = strings.TrimSuffix(head, ",")
	if head = strings.TrimSpace(head); head == "" {
		return title
	}
	return head
}

// Truncate hard-cuts s at max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}

// SentenceTruncate cuts s at the last sentence-ending punctuation inside
// budget, provided that boundary lands past floor; otherwise it hard-cuts
// at budget with an ellipsis. Strings within budget pass through unchanged.
func SentenceTruncate(s string, budget, floor int) string {
	r := []rune(s)
	if budget <= 0 || len(r) <= budget {
		return s
	}
	window := r[:budget]
	cut := -1
	for i, c := range window {
		if c == '.' || c == '!' || c == '?' {
			cut = i
		}
	}
	if cut >= floor {
		return strings.TrimSpace(string(window[:cut+1]))
	}
	return strings.TrimSpace(string(window)) + "..."
}
