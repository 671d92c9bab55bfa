package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/shoplist/internal/draft"
	"github.com/dukerupert/shoplist/internal/grocery"
)

var errDraftItemNotFound = errors.New("draft item not found")

type DraftHandler struct {
	drafts *draft.Manager
	adder  draft.ListAdder
	logger *slog.Logger
}

func NewDraftHandler(m *draft.Manager, adder draft.ListAdder, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{drafts: m, adder: adder, logger: logger}
}

// draftView carries a category suggestion while the user has not picked one.
type draftView struct {
	draft.Draft
	SuggestedCategory string `json:"suggested_category,omitempty"`
}

func newDraftView(d draft.Draft) draftView {
	v := draftView{Draft: d}
	if d.Category == "" {
		names := make([]string, len(d.Items))
		for i, it := range d.Items {
			names[i] = it.Name
		}
		v.SuggestedCategory = grocery.SuggestForItems(names)
	}
	return v
}

type draftRequest struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
}

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	category := ""
	if req.Category != nil {
		category = *req.Category
	}
	d := h.drafts.Create(category)
	if req.Name != nil {
		var err error
		d, err = h.drafts.Update(d.ID, func(d *draft.Draft) error {
			d.SetName(*req.Name)
			return nil
		})
		if err != nil {
			writeError(w, h.logger, err, "failed to create draft")
			return
		}
	}
	h.logger.Debug("draft created", "id", d.ID, "category", d.Category)
	writeJSON(w, http.StatusCreated, newDraftView(d))
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to get draft")
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(d))
}

func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	d, err := h.drafts.Update(r.PathValue("id"), func(d *draft.Draft) error {
		if req.Name != nil {
			d.SetName(*req.Name)
		}
		if req.Category != nil {
			d.SetCategory(*req.Category)
		}
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to update draft")
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(d))
}

func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if !h.drafts.Discard(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	d, err := h.drafts.Update(r.PathValue("id"), func(d *draft.Draft) error {
		_, err := d.AddItem(req.Name, req.Quantity)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to add draft item")
		return
	}
	writeJSON(w, http.StatusCreated, newDraftView(d))
}

func (h *DraftHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseInt64Param(r, "item_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	h.updateItem(w, r, "failed to update draft item", func(d *draft.Draft) (bool, error) {
		return d.EditItem(itemID, req.Name, req.Quantity)
	})
}

func (h *DraftHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseInt64Param(r, "item_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}

	h.updateItem(w, r, "failed to remove draft item", func(d *draft.Draft) (bool, error) {
		return d.RemoveItem(itemID), nil
	})
}

func (h *DraftHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseInt64Param(r, "item_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}

	h.updateItem(w, r, "failed to toggle draft item", func(d *draft.Draft) (bool, error) {
		return d.ToggleItem(itemID), nil
	})
}

func (h *DraftHandler) updateItem(w http.ResponseWriter, r *http.Request, msg string, fn func(*draft.Draft) (bool, error)) {
	d, err := h.drafts.Update(r.PathValue("id"), func(d *draft.Draft) error {
		found, err := fn(d)
		if err != nil {
			return err
		}
		if !found {
			return errDraftItemNotFound
		}
		return nil
	})
	if errors.Is(err, errDraftItemNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	if err != nil {
		writeError(w, h.logger, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(d))
}

func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	list, err := h.drafts.Submit(r.Context(), id, h.adder)
	if err != nil {
		writeError(w, h.logger, err, "failed to submit draft")
		return
	}
	h.logger.Debug("draft submitted", "id", id, "list_id", list.ID)
	writeJSON(w, http.StatusCreated, newListView(*list))
}
