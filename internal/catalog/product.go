// Package catalog holds the snapshot types the catalog collaborator
// hands to the engine at order-creation time. The engine never reads
// catalog state back for an existing order; later menu edits cannot
// change what was sold.
package catalog

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"` // smallest currency unit
}

// SelectedOption is one chosen product option with its surcharge.
type SelectedOption struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Surcharge int64  `json:"surcharge"`
}
