package grocery

import "strings"

// Categorize returns the catalogue category for an item name. It matches
// case-insensitively: whole-name keywords first, then substrings in table
// order. Unknown names fall back to Other Items.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return OtherItems
	}
	if cat, ok := exactMatch[name]; ok {
		return cat
	}
	for _, e := range substringMatches {
		if strings.Contains(name, e.keyword) {
			return e.category
		}
	}
	return OtherItems
}

// SuggestForItems picks the category most item names fall under, ignoring
// Other Items. Ties go to the category seen first. It returns "" when no item
// matches anything.
func SuggestForItems(names []string) string {
	counts := make(map[string]int)
	best, bestN := "", 0
	for _, n := range names {
		cat := Categorize(n)
		if cat == OtherItems {
			continue
		}
		counts[cat]++
		if counts[cat] > bestN {
			best, bestN = cat, counts[cat]
		}
	}
	return best
}

var exactMatch = buildExact(map[string][]string{
	Groceries: {
		"apples", "bananas", "oranges", "lemons", "avocados", "tomatoes", "potatoes",
		"onions", "garlic", "lettuce", "spinach", "broccoli", "carrots", "grapes",
		"chicken", "beef", "pork", "bacon", "salmon", "shrimp", "bread", "bagels",
		"tortillas", "ice cream", "frozen pizza", "coffee", "tea", "juice", "soda",
		"water", "chips", "cookies", "crackers",
	},
	Pantry: {
		"rice", "pasta", "flour", "sugar", "salt", "olive oil", "vinegar", "ketchup",
		"mustard", "honey", "peanut butter", "jam", "cereal", "oatmeal", "soup",
		"broth", "lentils", "spaghetti", "noodles", "maple syrup",
	},
	DairyEggs: {
		"milk", "eggs", "butter", "cheese", "yogurt", "cream cheese", "sour cream",
		"heavy cream", "half and half", "cottage cheese",
	},
	PersonalCare: {
		"shampoo", "conditioner", "soap", "body wash", "toothpaste", "toothbrush",
		"deodorant", "lotion", "sunscreen", "floss", "razors", "tissues", "band-aids",
	},
	BabyKids: {
		"diapers", "wipes", "baby wipes", "formula", "baby food", "pacifier",
		"bottles", "sippy cup", "crayons", "diaper cream",
	},
	Electronics: {
		"batteries", "charger", "usb cable", "headphones", "earbuds", "light bulbs",
		"hdmi cable", "power strip", "mouse", "keyboard",
	},
})

func buildExact(byCategory map[string][]string) map[string]string {
	m := make(map[string]string)
	for cat, names := range byCategory {
		for _, n := range names {
			m[n] = cat
		}
	}
	return m
}

type substringEntry struct {
	keyword  string
	category string
}

// Longer, more specific keywords come first: "baby shampoo" must land in
// Baby & Kids before "shampoo" claims it, "peanut butter" in Pantry before
// "butter" claims it.
var substringMatches = []substringEntry{
	{"baby", BabyKids},
	{"diaper", BabyKids},
	{"toddler", BabyKids},
	{"kids", BabyKids},
	{"infant", BabyKids},
	{"formula", BabyKids},
	{"bottle", BabyKids},

	{"peanut butter", Pantry},
	{"almond butter", Pantry},
	{"olive oil", Pantry},
	{"maple syrup", Pantry},
	{"soy sauce", Pantry},
	{"hot sauce", Pantry},
	{"canned", Pantry},
	{"cereal", Pantry},
	{"oatmeal", Pantry},
	{"rice", Pantry},
	{"pasta", Pantry},
	{"noodle", Pantry},
	{"flour", Pantry},
	{"sugar", Pantry},
	{"spice", Pantry},
	{"sauce", Pantry},
	{"broth", Pantry},
	{"soup", Pantry},
	{"bean", Pantry},

	{"cream cheese", DairyEggs},
	{"sour cream", DairyEggs},
	{"greek yogurt", DairyEggs},
	{"oat milk", DairyEggs},
	{"almond milk", DairyEggs},
	{"yogurt", DairyEggs},
	{"cheese", DairyEggs},
	{"milk", DairyEggs},
	{"butter", DairyEggs},
	{"cream", DairyEggs},
	{"egg", DairyEggs},

	{"body wash", PersonalCare},
	{"shampoo", PersonalCare},
	{"conditioner", PersonalCare},
	{"toothpaste", PersonalCare},
	{"toothbrush", PersonalCare},
	{"deodorant", PersonalCare},
	{"lotion", PersonalCare},
	{"sunscreen", PersonalCare},
	{"razor", PersonalCare},
	{"soap", PersonalCare},

	{"battery", Electronics},
	{"batteries", Electronics},
	{"charger", Electronics},
	{"cable", Electronics},
	{"adapter", Electronics},
	{"headphone", Electronics},
	{"bulb", Electronics},
	{"usb", Electronics},

	{"chicken", Groceries},
	{"beef", Groceries},
	{"pork", Groceries},
	{"fish", Groceries},
	{"frozen", Groceries},
	{"bread", Groceries},
	{"bagel", Groceries},
	{"fruit", Groceries},
	{"berries", Groceries},
	{"apple", Groceries},
	{"banana", Groceries},
	{"tomato", Groceries},
	{"potato", Groceries},
	{"onion", Groceries},
	{"lettuce", Groceries},
	{"spinach", Groceries},
	{"juice", Groceries},
	{"water", Groceries},
	{"coffee", Groceries},
	{"snack", Groceries},
	{"chip", Groceries},
}
