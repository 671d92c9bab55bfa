package handler

import (
	"net/http"
	"strings"

	"github.com/dukerupert/shoplist/internal/grocery"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, grocery.Categories())
}

// Suggest answers ?item=NAME with the category for that item. Repeating the
// parameter suggests one category for the whole set.
func (h *CategoryHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, n := range r.URL.Query()["item"] {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item is required"})
		return
	}

	category := grocery.Categorize(names[0])
	if len(names) > 1 {
		category = grocery.SuggestForItems(names)
		if category == "" {
			category = grocery.OtherItems
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"category": category})
}
