// Package student models matriculation identifiers and the students that can be
// discovered from submission filenames.
package student

// IdentifierLength is the fixed number of digits in a matriculation identifier.
const IdentifierLength = 8

// IsValidIdentifier reports whether s is exactly eight ASCII decimal digits.
// Leading zeros are significant; identifiers are never parsed as numbers.
func IsValidIdentifier(s string) bool {
	if len(s) != IdentifierLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
