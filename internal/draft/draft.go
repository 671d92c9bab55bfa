// Package draft holds the in-progress state of the add-list form: a name, a
// category and a handful of items, kept apart from the shopping store until
// the user submits.
package draft

import (
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/shopping"
)

// Draft is not safe for concurrent use; Manager serialises access to it.
type Draft struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Category  string       `json:"category"`
	Items     []model.Item `json:"items"`
	UpdatedAt time.Time    `json:"updated_at"`

	nextItemID int64
}

// New starts an empty draft. category comes from the chip the user picked on
// the home screen and may be empty.
func New(id, category string) *Draft {
	return &Draft{
		ID:         id,
		Category:   strings.TrimSpace(category),
		Items:      []model.Item{},
		UpdatedAt:  time.Now().UTC(),
		nextItemID: 1,
	}
}

func (d *Draft) touch() {
	d.UpdatedAt = time.Now().UTC()
}

func (d *Draft) SetName(name string) {
	d.Name = name
	d.touch()
}

func (d *Draft) SetCategory(category string) {
	d.Category = strings.TrimSpace(category)
	d.touch()
}

// AddItem appends an unpurchased item. Quantities below 1 are raised to 1,
// matching the form's stepper which never goes lower.
func (d *Draft) AddItem(name string, quantity int) (model.Item, error) {
	name = strings.TrimSpace(name)
	quantity = max(quantity, 1)
	if err := shopping.ValidateItem(name, quantity); err != nil {
		return model.Item{}, err
	}
	it := model.Item{ID: d.nextItemID, Name: name, Quantity: quantity}
	d.nextItemID++
	d.Items = append(d.Items, it)
	d.touch()
	return it, nil
}

// EditItem replaces an item's name and quantity. It reports false when the
// draft has no such item.
func (d *Draft) EditItem(id int64, name string, quantity int) (bool, error) {
	name = strings.TrimSpace(name)
	quantity = max(quantity, 1)
	if err := shopping.ValidateItem(name, quantity); err != nil {
		return false, err
	}
	i := d.indexOf(id)
	if i < 0 {
		return false, nil
	}
	d.Items[i].Name = name
	d.Items[i].Quantity = quantity
	d.touch()
	return true, nil
}

func (d *Draft) RemoveItem(id int64) bool {
	i := d.indexOf(id)
	if i < 0 {
		return false
	}
	d.Items = slices.Delete(d.Items, i, i+1)
	d.touch()
	return true
}

// ToggleItem flips the purchased preview of one item.
func (d *Draft) ToggleItem(id int64) bool {
	i := d.indexOf(id)
	if i < 0 {
		return false
	}
	d.Items[i].Purchased = !d.Items[i].Purchased
	d.touch()
	return true
}

func (d *Draft) indexOf(id int64) int {
	return slices.IndexFunc(d.Items, func(it model.Item) bool { return it.ID == id })
}

// Validate returns the first problem that blocks submission, as a
// *shopping.ValidationError, or nil.
func (d *Draft) Validate() error {
	return shopping.ValidateList(d.Name, d.Category, d.inputs())
}

// Action builds the AddList transition for this draft. Draft item ids are
// not carried over; the store numbers items itself.
func (d *Draft) Action() shopping.AddList {
	return shopping.AddList{Name: d.Name, Category: d.Category, Items: d.inputs()}
}

func (d *Draft) inputs() []model.ItemInput {
	in := make([]model.ItemInput, len(d.Items))
	for i, it := range d.Items {
		in[i] = model.ItemInput{Name: it.Name, Quantity: it.Quantity, Purchased: it.Purchased}
	}
	return in
}

func (d *Draft) clone() Draft {
	c := *d
	c.Items = slices.Clone(d.Items)
	if c.Items == nil {
		c.Items = []model.Item{}
	}
	return c
}
