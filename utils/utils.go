// Package utils provides shared constants and small helpers used across
// the service.
package utils

// ToPtr returns a pointer to v. Used when building models whose optional
// columns are pointer-typed.
func ToPtr[T any](v T) *T {
	return &v
}

// IsTrue reports whether an optional boolean is present and true.
func IsTrue(b *bool) bool {
	return b != nil && *b
}
