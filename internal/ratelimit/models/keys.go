package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so a user-controlled identifier containing ':' cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Key identifies one counter: a limit class plus the caller-supplied key.
type Key struct {
	Class      LimitClass
	Identifier string
}

// NewKey builds a counter key with a sanitized identifier.
func NewKey(class LimitClass, identifier string) Key {
	return Key{Class: class, Identifier: SanitizeKeySegment(strings.ToLower(identifier))}
}

// String renders the key as "rl:<class>:<identifier>".
func (k Key) String() string {
	return "rl:" + string(k.Class) + ":" + k.Identifier
}
