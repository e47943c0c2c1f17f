package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Content rejection reasons, checked in this order.
const (
	ContentTooLong            = "TOO_LONG"
	ContentEmpty              = "EMPTY"
	ContentInappropriate      = "INAPPROPRIATE"
	ContentRepeatedCharacters = "REPEATED_CHARACTERS"
	ContentContainsLink       = "CONTAINS_LINK"
	ContentContainsPhone      = "CONTAINS_PHONE"
	ContentContainsEmail      = "CONTAINS_EMAIL"
)

// maxRepeatedRun is the longest run of one character a message may contain.
const maxRepeatedRun = 10

var (
	deniedWords = []string{"spam", "scam", "fraud", "fake", "cheat"}

	linkPattern  = regexp.MustCompile(`https?://|www\.|\.com|\.lk|\.org`)
	phonePattern = regexp.MustCompile(`\b(\+94|94|0)?[1-9][0-9]{8,9}\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	urlTokenPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
)

var contentMessages = map[string]string{
	ContentTooLong:            "message is too long",
	ContentEmpty:              "message cannot be empty",
	ContentInappropriate:      "message contains inappropriate content",
	ContentRepeatedCharacters: "message contains too many repeated characters",
	ContentContainsLink:       "sharing links is not allowed",
	ContentContainsPhone:      "sharing phone numbers is not allowed before meeting in person",
	ContentContainsEmail:      "sharing email addresses is not allowed",
}

// ContentVerdict is the result of ValidateMessageContent.
type ContentVerdict struct {
	Valid  bool
	Reason string
}

// Message is the user-facing text for a rejected verdict.
func (v ContentVerdict) Message() string {
	return contentMessages[v.Reason]
}

// ValidateMessageContent applies the chat content policy. The checks are
// best-effort anti-circumvention heuristics, not a security boundary.
func ValidateMessageContent(text string, maxLength int) ContentVerdict {
	trimmed := strings.TrimSpace(text)
	switch {
	case utf8.RuneCountInString(trimmed) > maxLength:
		return ContentVerdict{Reason: ContentTooLong}
	case trimmed == "":
		return ContentVerdict{Reason: ContentEmpty}
	}

	lower := strings.ToLower(trimmed)
	for _, word := range deniedWords {
		if strings.Contains(lower, word) {
			return ContentVerdict{Reason: ContentInappropriate}
		}
	}
	if longestRun(trimmed) > maxRepeatedRun {
		return ContentVerdict{Reason: ContentRepeatedCharacters}
	}
	if linkPattern.MatchString(lower) {
		return ContentVerdict{Reason: ContentContainsLink}
	}
	if phonePattern.MatchString(trimmed) {
		return ContentVerdict{Reason: ContentContainsPhone}
	}
	if emailPattern.MatchString(trimmed) {
		return ContentVerdict{Reason: ContentContainsEmail}
	}
	return ContentVerdict{Valid: true}
}

// longestRun returns the length of the longest run of one repeated rune.
// RE2 has no backreferences so this cannot be a regexp.
func longestRun(s string) int {
	longest, run := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// SanitizeNote collapses whitespace and masks contact details in a request note.
func SanitizeNote(note string) string {
	note = strings.Join(strings.Fields(note), " ")
	note = emailPattern.ReplaceAllString(note, "[email removed]")
	note = urlTokenPattern.ReplaceAllString(note, "[link removed]")
	note = phonePattern.ReplaceAllString(note, "[phone removed]")
	return note
}
