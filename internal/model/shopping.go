package model

type Item struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Purchased bool   `json:"purchased"`
}

type ShoppingList struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// ItemInput is the caller-supplied part of an item; the store assigns the ID.
type ItemInput struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Purchased bool   `json:"purchased"`
}

// Clone returns a copy of l that shares no item storage with it.
func (l ShoppingList) Clone() ShoppingList {
	c := l
	if l.Items != nil {
		c.Items = make([]Item, len(l.Items))
		copy(c.Items, l.Items)
	}
	return c
}
