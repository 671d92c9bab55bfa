// Package grocery knows the fixed category catalogue shown as chips on the
// home screen and suggests a category for an item name.
package grocery

import "strings"

// Catalogue categories, in display order.
const (
	Groceries    = "Groceries"
	Pantry       = "Pantry"
	DairyEggs    = "Dairy & Eggs"
	PersonalCare = "Personal Care"
	BabyKids     = "Baby & Kids"
	Electronics  = "Electronics"
	OtherItems   = "Other Items"
)

type Category struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

var catalogue = []string{Groceries, Pantry, DairyEggs, PersonalCare, BabyKids, Electronics, OtherItems}

// Categories returns the catalogue in display order.
func Categories() []Category {
	out := make([]Category, len(catalogue))
	for i, name := range catalogue {
		out[i] = Category{Name: name, SortOrder: i}
	}
	return out
}

// Canonical returns the catalogue spelling of name when it matches a
// catalogue entry ignoring case and surrounding space, and ok=false
// otherwise. Lists may still use categories outside the catalogue.
func Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range catalogue {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return name, false
}
