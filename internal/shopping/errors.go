package shopping

import (
	"errors"
	"strings"

	"github.com/dukerupert/shoplist/internal/model"
)

// ErrClosed is returned by Dispatch once the store has been closed.
var ErrClosed = errors.New("shopping: store closed")

// ValidationError reports a payload that would break a list or item invariant.
// Message is meant to be shown to the user as-is.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgListName     = "Please enter a list name."
	msgCategory     = "Please choose a category."
	msgNoItems      = "Please add at least one item."
	msgItemName     = "Item name is required."
	msgItemQuantity = "Quantity must be at least 1."
)

// ValidateList checks the add-list payload in the order a user fills the form:
// name, category, then items.
func ValidateList(name, category string, items []model.ItemInput) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: msgListName}
	}
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Field: "category", Message: msgCategory}
	}
	if len(items) == 0 {
		return &ValidationError{Field: "items", Message: msgNoItems}
	}
	for _, it := range items {
		if verr := checkItem(it.Name, it.Quantity); verr != nil {
			verr.Field = "items"
			return verr
		}
	}
	return nil
}

// ValidateItem checks a single item's name and quantity.
func ValidateItem(name string, quantity int) error {
	if verr := checkItem(name, quantity); verr != nil {
		return verr
	}
	return nil
}

func checkItem(name string, quantity int) *ValidationError {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: msgItemName}
	}
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Message: msgItemQuantity}
	}
	return nil
}
