package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/shopping"
)

type ListHandler struct {
	store  *shopping.Store
	logger *slog.Logger
}

func NewListHandler(s *shopping.Store, logger *slog.Logger) *ListHandler {
	return &ListHandler{store: s, logger: logger}
}

// listView adds the derived fields the home screen shows on each card.
type listView struct {
	model.ShoppingList
	Complete  bool `json:"complete"`
	Purchased int  `json:"purchased"`
	Total     int  `json:"total"`
}

func newListView(l model.ShoppingList) listView {
	purchased, total := shopping.PurchasedCount(l)
	return listView{
		ShoppingList: l,
		Complete:     shopping.IsListComplete(l),
		Purchased:    purchased,
		Total:        total,
	}
}

type listRequest struct {
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Items    []model.ItemInput `json:"items"`
}

type itemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists := shopping.FilterByCategory(h.store.Lists(), r.URL.Query().Get("category"))
	views := make([]listView, len(lists))
	for i, l := range lists {
		views[i] = newListView(l)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	list := h.store.List(id)
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return
	}
	writeJSON(w, http.StatusOK, newListView(*list))
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	list, err := h.store.AddList(r.Context(), req.Name, req.Category, req.Items)
	if err != nil {
		writeError(w, h.logger, err, "failed to create list")
		return
	}
	writeJSON(w, http.StatusCreated, newListView(*list))
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	deleted, err := h.store.DeleteList(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "failed to delete list")
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	item, err := h.store.ToggleItemPurchased(r.Context(), listID, itemID)
	if err != nil {
		writeError(w, h.logger, err, "failed to toggle item")
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	item, err := h.store.EditItem(r.Context(), listID, itemID, req.Name, req.Quantity)
	if err != nil {
		writeError(w, h.logger, err, "failed to update item")
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	deleted, err := h.store.DeleteItem(r.Context(), listID, itemID)
	if err != nil {
		writeError(w, h.logger, err, "failed to delete item")
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func itemParams(w http.ResponseWriter, r *http.Request) (listID, itemID int64, ok bool) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, 0, false
	}
	itemID, err = parseInt64Param(r, "item_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return 0, 0, false
	}
	return listID, itemID, true
}
