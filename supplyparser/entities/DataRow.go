package entities

// DataRow is one extracted sheet row: a fixed-width, positionally meaningful
// slice of canonical strings.
type DataRow []string
