package shopping

import (
	"strings"

	"github.com/dukerupert/shoplist/internal/model"
)

// IsListComplete reports whether every item in l is purchased. A list with
// no items is never complete.
func IsListComplete(l model.ShoppingList) bool {
	if len(l.Items) == 0 {
		return false
	}
	for _, it := range l.Items {
		if !it.Purchased {
			return false
		}
	}
	return true
}

// FindList returns the list with the given id, or nil.
func FindList(lists []model.ShoppingList, id int64) *model.ShoppingList {
	if i := indexOfList(lists, id); i >= 0 {
		return &lists[i]
	}
	return nil
}

// FindItem returns the item with the given id in l, or nil.
func FindItem(l *model.ShoppingList, id int64) *model.Item {
	if l == nil {
		return nil
	}
	if i := indexOfItem(l.Items, id); i >= 0 {
		return &l.Items[i]
	}
	return nil
}

// PurchasedCount returns how many of l's items are purchased and how many
// items it has in total.
func PurchasedCount(l model.ShoppingList) (purchased, total int) {
	for _, it := range l.Items {
		if it.Purchased {
			purchased++
		}
	}
	return purchased, len(l.Items)
}

// FilterByCategory keeps the lists whose category matches, ignoring case.
// An empty category keeps everything.
func FilterByCategory(lists []model.ShoppingList, category string) []model.ShoppingList {
	category = strings.TrimSpace(category)
	if category == "" {
		return lists
	}
	out := make([]model.ShoppingList, 0, len(lists))
	for _, l := range lists {
		if strings.EqualFold(l.Category, category) {
			out = append(out, l)
		}
	}
	return out
}
