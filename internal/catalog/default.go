package catalog

import "cookieboy-api/internal/model"

var defaultItems = []model.CatalogItem{
	{
		ID:          "wooden_spoon",
		Emoji:       "🥄",
		Name:        "Wooden Spoon",
		Description: "+1 cookie per click",
		Cost:        50,
		Kind:        model.KindMultiplier,
		Value:       1,
	},
	{
		ID:          "silver_spatula",
		Emoji:       "🥄",
		Name:        "Silver Spatula",
		Description: "+5 cookies per click",
		Cost:        200,
		Kind:        model.KindMultiplier,
		Value:       5,
	},
	{
		ID:          "golden_whisk",
		Emoji:       "🥄",
		Name:        "Golden Whisk",
		Description: "+20 cookies per click",
		Cost:        1000,
		Kind:        model.KindMultiplier,
		Value:       20,
	},
	{
		ID:          "cookie_mouse",
		Emoji:       "🐭",
		Name:        "Cookie Mouse",
		Description: "Auto-clicks 1 cookie every 60 seconds",
		Cost:        100,
		Kind:        model.KindAutoClicker,
		Value:       1,
		IntervalMs:  60000,
	},
	{
		ID:          "baking_bot",
		Emoji:       "🤖",
		Name:        "Baking Bot",
		Description: "Auto-clicks 5 cookies every 45 seconds",
		Cost:        500,
		Kind:        model.KindAutoClicker,
		Value:       5,
		IntervalMs:  45000,
	},
	{
		ID:          "cookie_factory",
		Emoji:       "🏭",
		Name:        "Cookie Factory",
		Description: "Auto-clicks 15 cookies every 30 seconds",
		Cost:        2500,
		Kind:        model.KindAutoClicker,
		Value:       15,
		IntervalMs:  30000,
	},
}
