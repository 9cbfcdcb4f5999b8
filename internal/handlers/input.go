package handlers

import (
	"path"
	"strings"
)

// extractJSON strips a surrounding Markdown code fence (```json ... ```)
// from pasted input.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string, e.g. "json".
		if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// looksLikeJSON is a cheap gate for plain chat text; real validation happens
// in the converter.
func looksLikeJSON(text string) bool {
	text = extractJSON(text)
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// splitProfileArg separates an optional leading profile id from the JSON in
// "/convert [profile] <json>".
func splitProfileArg(args string) (profile, input string) {
	args = strings.TrimSpace(args)
	if args == "" || looksLikeJSON(args) {
		return "", extractJSON(args)
	}

	head, rest, _ := strings.Cut(args, " ")
	if nl := strings.IndexAny(head, "\n\t"); nl >= 0 {
		head, rest = head[:nl], args[nl+1:]
	}
	return strings.TrimSpace(head), extractJSON(rest)
}

func isJSONDocument(fileName, mimeType string) bool {
	if strings.EqualFold(path.Ext(fileName), ".json") {
		return true
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "application/json" || strings.HasSuffix(mimeType, "+json")
}
