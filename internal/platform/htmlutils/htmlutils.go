// Package htmlutils prepares text for Telegram HTML-mode messages:
// tag stripping for fetched content, entity escaping, and splitting by
// UTF-16 code units (Telegram's length accounting).
package htmlutils

import (
	"html"
	"strings"
	"unicode/utf16"

	xhtml "golang.org/x/net/html"
)

// skipContentTags hold no renderable text.
var skipContentTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

// StripTags reduces an HTML fragment to its plain text. Script and style
// bodies are dropped, entities are decoded, and whitespace runs collapse
// to single spaces.
func StripTags(fragment string) string {
	if fragment == "" {
		return ""
	}

	var sb strings.Builder

	tokenizer := xhtml.NewTokenizer(strings.NewReader(fragment))
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		if tt == xhtml.ErrorToken {
			break
		}

		switch tt {
		case xhtml.StartTagToken:
			name, _ := tokenizer.TagName()
			if skipContentTags[string(name)] {
				skipDepth++
			}
		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if skipContentTags[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case xhtml.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// EscapeText escapes text for embedding in a Telegram HTML-mode message.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// utf16Len counts UTF-16 code units. Telegram measures message length in
// UTF-16 code units, so characters outside the BMP count twice.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Slice returns the longest prefix fitting maxUnits UTF-16 code
// units, never splitting a surrogate pair.
func utf16Slice(s string, maxUnits int) string {
	units := 0

	for i, r := range s {
		runeUnits := 1
		if r > 0xFFFF {
			runeUnits = 2
		}

		if units+runeUnits > maxUnits {
			return s[:i]
		}

		units += runeUnits
	}

	return s
}

// SplitMessage splits text into parts no longer than limit UTF-16 code
// units, preferring paragraph then line then word boundaries. Parts are
// never empty and concatenate back to the original text modulo the
// whitespace consumed at split points.
func SplitMessage(text string, limit int) []string {
	if limit < 1 || utf16Len(text) <= limit {
		return []string{text}
	}

	var parts []string

	remaining := text
	for utf16Len(remaining) > limit {
		head := utf16Slice(remaining, limit)

		cut := bestCut(head)
		if cut < 1 {
			cut = len(head)
		}

		parts = append(parts, strings.TrimRight(remaining[:cut], " \t\n"))
		remaining = strings.TrimLeft(remaining[cut:], " \t\n")
	}

	if remaining != "" {
		parts = append(parts, remaining)
	}

	return parts
}

// bestCut picks the byte offset to split at within head, preferring the
// latest paragraph break, then line break, then space.
func bestCut(head string) int {
	if pos := strings.LastIndex(head, "\n\n"); pos > 0 {
		return pos
	}

	if pos := strings.LastIndex(head, "\n"); pos > 0 {
		return pos
	}

	if pos := strings.LastIndex(head, " "); pos > 0 {
		return pos
	}

	return len(head)
}
