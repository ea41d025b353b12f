// Package models defines the core domain types for hybrid question answering.
package models

// FormatHint declares the shape the caller expects the final answer in.
type FormatHint string

const (
	FormatInt   FormatHint = "int"   // single integer
	FormatFloat FormatHint = "float" // decimal, rounded to 2 places
	FormatStr   FormatHint = "str"   // free text
)

// IsList reports whether the hint asks for an ordered list, e.g. "list[str]".
func (f FormatHint) IsList() bool {
	return len(f) >= 5 && f[:5] == "list["
}

// IsObject reports whether the hint asks for a key-value mapping,
// e.g. "{category: str, revenue: float}".
func (f FormatHint) IsObject() bool {
	for i := 0; i < len(f); i++ {
		if f[i] == '{' {
			return true
		}
	}

	return false
}

// Question is an immutable input record. Created at batch-load time and
// never mutated afterwards.
type Question struct {
	ID         string     `json:"id"          validate:"required"`
	Text       string     `json:"question"    validate:"required"`
	FormatHint FormatHint `json:"format_hint"`
}
