package shopping

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/shoplist/internal/model"
)

// State is one immutable snapshot of the store. Transitions never modify a
// State in place; they return a new one that shares untouched lists.
type State struct {
	Lists []model.ShoppingList `json:"lists"`
	// LastIssuedID is the highest list id ever assigned. Only IDPolicyMonotonic
	// consults it, but it is tracked under both policies.
	LastIssuedID int64 `json:"last_issued_id"`
}

// IDPolicy decides how AddList picks a new list id.
type IDPolicy int

const (
	// IDPolicyLastPlusOne assigns the last list's id + 1, or 1 when empty.
	// Deleting the last list and adding another reuses its id.
	IDPolicyLastPlusOne IDPolicy = iota
	// IDPolicyMonotonic never hands out an id twice.
	IDPolicyMonotonic
)

func (p IDPolicy) String() string {
	switch p {
	case IDPolicyMonotonic:
		return "monotonic"
	default:
		return "last-plus-one"
	}
}

// ParseIDPolicy accepts "last-plus-one" (or "") and "monotonic".
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-plus-one":
		return IDPolicyLastPlusOne, nil
	case "monotonic":
		return IDPolicyMonotonic, nil
	}
	return IDPolicyLastPlusOne, fmt.Errorf("unknown id policy %q", s)
}

// Action is one of the five store transitions.
type Action interface {
	action()
}

type AddList struct {
	Name     string
	Category string
	Items    []model.ItemInput
}

type ToggleItemPurchased struct {
	ListID int64
	ItemID int64
}

type EditItem struct {
	ListID   int64
	ItemID   int64
	Name     string
	Quantity int
}

type DeleteItem struct {
	ListID int64
	ItemID int64
}

type DeleteList struct {
	ListID int64
}

func (AddList) action()             {}
func (ToggleItemPurchased) action() {}
func (EditItem) action()            {}
func (DeleteItem) action()          {}
func (DeleteList) action()          {}

// Entities and actions reported in events.
const (
	EntityList = "shopping_list"
	EntityItem = "shopping_item"

	ActionCreated = "created"
	ActionToggled = "toggled"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes the outcome of one transition. Applied is false when the
// action named a list or item that does not exist; the state is then unchanged.
type Event struct {
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	ListID  int64  `json:"list_id"`
	ItemID  int64  `json:"item_id,omitempty"`
	Applied bool   `json:"applied"`
}

// Reducer applies actions to states.
type Reducer struct {
	Policy IDPolicy
}

// Reduce returns the state that results from applying a to s. It never
// modifies s. A *ValidationError leaves the returned state equal to s.
func (r Reducer) Reduce(s State, a Action) (State, Event, error) {
	switch a := a.(type) {
	case AddList:
		return r.addList(s, a)
	case ToggleItemPurchased:
		return toggleItem(s, a)
	case EditItem:
		return editItem(s, a)
	case DeleteItem:
		return deleteItem(s, a)
	case DeleteList:
		return deleteList(s, a)
	}
	return s, Event{}, fmt.Errorf("unknown action %T", a)
}

func (r Reducer) nextListID(s State) int64 {
	next := int64(1)
	if n := len(s.Lists); n > 0 {
		next = s.Lists[n-1].ID + 1
	}
	if r.Policy == IDPolicyMonotonic && s.LastIssuedID >= next {
		next = s.LastIssuedID + 1
	}
	return next
}

func (r Reducer) addList(s State, a AddList) (State, Event, error) {
	if err := ValidateList(a.Name, a.Category, a.Items); err != nil {
		return s, Event{Entity: EntityList, Action: ActionCreated}, err
	}

	items := make([]model.Item, len(a.Items))
	for i, in := range a.Items {
		items[i] = model.Item{
			ID:        int64(i + 1),
			Name:      strings.TrimSpace(in.Name),
			Quantity:  in.Quantity,
			Purchased: in.Purchased,
		}
	}

	list := model.ShoppingList{
		ID:       r.nextListID(s),
		Name:     strings.TrimSpace(a.Name),
		Category: strings.TrimSpace(a.Category),
		Items:    items,
	}

	next := State{
		Lists:        append(slices.Clip(s.Lists), list),
		LastIssuedID: max(s.LastIssuedID, list.ID),
	}
	return next, Event{Entity: EntityList, Action: ActionCreated, ListID: list.ID, Applied: true}, nil
}

func toggleItem(s State, a ToggleItemPurchased) (State, Event, error) {
	ev := Event{Entity: EntityItem, Action: ActionToggled, ListID: a.ListID, ItemID: a.ItemID}
	li, ii, ok := locate(s, a.ListID, a.ItemID)
	if !ok {
		return s, ev, nil
	}

	list := s.Lists[li].Clone()
	list.Items[ii].Purchased = !list.Items[ii].Purchased

	ev.Applied = true
	return s.replaceList(li, list), ev, nil
}

func editItem(s State, a EditItem) (State, Event, error) {
	ev := Event{Entity: EntityItem, Action: ActionUpdated, ListID: a.ListID, ItemID: a.ItemID}
	if err := ValidateItem(a.Name, a.Quantity); err != nil {
		return s, ev, err
	}
	li, ii, ok := locate(s, a.ListID, a.ItemID)
	if !ok {
		return s, ev, nil
	}

	list := s.Lists[li].Clone()
	list.Items[ii].Name = strings.TrimSpace(a.Name)
	list.Items[ii].Quantity = a.Quantity

	ev.Applied = true
	return s.replaceList(li, list), ev, nil
}

func deleteItem(s State, a DeleteItem) (State, Event, error) {
	ev := Event{Entity: EntityItem, Action: ActionDeleted, ListID: a.ListID, ItemID: a.ItemID}
	li, ii, ok := locate(s, a.ListID, a.ItemID)
	if !ok {
		return s, ev, nil
	}

	list := s.Lists[li]
	items := slices.Concat(list.Items[:ii], list.Items[ii+1:])
	if items == nil {
		items = []model.Item{}
	}
	list.Items = items

	ev.Applied = true
	return s.replaceList(li, list), ev, nil
}

func deleteList(s State, a DeleteList) (State, Event, error) {
	ev := Event{Entity: EntityList, Action: ActionDeleted, ListID: a.ListID}
	li := indexOfList(s.Lists, a.ListID)
	if li < 0 {
		return s, ev, nil
	}

	lists := slices.Concat(s.Lists[:li], s.Lists[li+1:])
	if lists == nil {
		lists = []model.ShoppingList{}
	}

	ev.Applied = true
	return State{Lists: lists, LastIssuedID: s.LastIssuedID}, ev, nil
}

func (s State) replaceList(i int, l model.ShoppingList) State {
	lists := slices.Clone(s.Lists)
	lists[i] = l
	return State{Lists: lists, LastIssuedID: s.LastIssuedID}
}

func locate(s State, listID, itemID int64) (int, int, bool) {
	li := indexOfList(s.Lists, listID)
	if li < 0 {
		return -1, -1, false
	}
	ii := indexOfItem(s.Lists[li].Items, itemID)
	if ii < 0 {
		return -1, -1, false
	}
	return li, ii, true
}

func indexOfList(lists []model.ShoppingList, id int64) int {
	return slices.IndexFunc(lists, func(l model.ShoppingList) bool { return l.ID == id })
}

func indexOfItem(items []model.Item, id int64) int {
	return slices.IndexFunc(items, func(it model.Item) bool { return it.ID == id })
}
