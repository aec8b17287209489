package domain

// Rule is one compliance rule from the catalog.
// The description doubles as the retrieval query when no contract is supplied.
type Rule struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}
