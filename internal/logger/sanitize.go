package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length caps for values written to logs
const (
	MaxPathLength          = 500
	MaxUserIDLength        = 128
	MaxErrorMessageLength  = 1000
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength caps chat text and generated documents, which are
	// only logged in debug mode
	MaxDebugContentLength = 10000
)

// SanitizeString makes s safe to log: invalid UTF-8 and control characters
// other than whitespace are dropped and the result is cut to maxLength bytes
// on a rune boundary. A non-positive maxLength means MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = strings.Map(keepLoggable, strings.ToValidUTF8(s, ""))
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func keepLoggable(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r', unicode.IsPrint(r):
		return r
	default:
		return -1
	}
}

// SanitizePath prepares a request path for logs
func SanitizePath(path string) string { return SanitizeString(path, MaxPathLength) }

// SanitizeUserID prepares a user id for logs
func SanitizeUserID(userID string) string { return SanitizeString(userID, MaxUserIDLength) }

// SanitizeDebugContent prepares user content (chat text, documents) for debug logs
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}

// SanitizeError prepares an error message for logs. A nil error yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
