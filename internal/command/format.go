package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/model"
)

// FailureReply is sent when a command fails for reasons the user cannot fix.
const FailureReply = "⚠️ Something went wrong, please try again in a moment."

const (
	throttledReply   = "⏳ Slow down! You're sending commands too fast."
	giveUsage        = "Usage: `!give @user {amount}`\nExample: `!give @john 10`"
	giveNoMention    = "Please mention a user to give cookies to! Example: `!give @john 10`"
	giveSelf         = "You cannot give cookies to yourself! 🤷‍♂️"
	giveBot          = "You cannot give cookies to bots! 🤖"
	giveBadAmount    = "Please enter a valid positive number! Example: `!give @john 10`"
	buyUsage         = "Usage: `!buy <item_name>` or `!buy <item_name> <quantity>`\nExamples: `!buy wooden_spoon` or `!buy wooden_spoon 3`\nUse `!shop` to see available items!"
	buyBadQuantity   = "❌ Please enter a valid positive number for quantity!\nExample: `!buy wooden_spoon 3`"
	buyUnknownItem   = "❌ Item not found! Use `!shop` to see available items."
	emptyInventory   = "📦 Your inventory is empty! Use `!shop` to see available items."
	emptyLeaderboard = "No one has any cookies yet! Use `!click` to get started! 🍪"
)

var medals = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

func formatClick(r model.ClickResult) string {
	if r.Bonus > 0 {
		return fmt.Sprintf("You earned 🍪 **%d** cookies! (%d base + %d from upgrades)\nTotal: **%d**",
			r.Earned, r.Base, r.Bonus, r.NewBalance)
	}
	return fmt.Sprintf("You earned 🍪 **%d** cookies! Total: **%d**", r.Earned, r.NewBalance)
}

func formatBalance(balance int64) string {
	return fmt.Sprintf("You have 🍪 **%d** cookies.", balance)
}

func formatDaily(r model.DailyResult) string {
	return fmt.Sprintf("🎉 **Daily Bonus Claimed!** 🎉\nYou received 🍪 **%d** cookies!\nTotal cookies: **%d**",
		r.Granted, r.NewBalance)
}

func formatAlreadyClaimed(remaining time.Duration) string {
	return fmt.Sprintf("⏰ You already claimed your daily bonus! Try again in **%s**.", formatWait(remaining))
}

// formatWait renders a duration as "Hh Mm", rounding minutes down.
func formatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func formatTransfer(r model.TransferResult, recipient string) string {
	return fmt.Sprintf("🎁 You gave 🍪 **%d** cookies to **%s**!\nYour cookies: **%d** | Their cookies: **%d**",
		r.Amount, recipient, r.NewFromBalance, r.NewToBalance)
}

func formatGiveShort(have, amount int64) string {
	return fmt.Sprintf("You don't have enough cookies! You have 🍪 **%d** cookies, but tried to give **%d**.", have, amount)
}

func formatPurchase(r model.PurchaseResult) string {
	if r.Quantity == 1 {
		return fmt.Sprintf("✅ **Purchase Successful!** ✅\nYou bought: **%s**\nCost: 🍪 **%d** cookies\nRemaining cookies: **%d**",
			r.Item.Name, r.TotalCost, r.NewBalance)
	}
	return fmt.Sprintf("✅ **Purchase Successful!** ✅\nYou bought: **%s** x%d\nTotal cost: 🍪 **%d** cookies (%d each)\nRemaining cookies: **%d**",
		r.Item.Name, r.Quantity, r.TotalCost, r.Item.Cost, r.NewBalance)
}

func formatBuyShort(item model.CatalogItem, quantity, need, have int64) string {
	return fmt.Sprintf("❌ Not enough cookies! You need 🍪 **%d** cookies (%d × %d) but only have **%d**.",
		need, item.Cost, quantity, have)
}

func formatMaxQuantity(limit int64) string {
	return fmt.Sprintf("❌ Maximum purchase quantity is %d items at once!", limit)
}

func formatShop(c *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("🛒 **Cookie Shop** 🛒\n\n")

	sections := []struct {
		title string
		kind  model.ItemKind
	}{
		{"**📈 Click Multipliers:**\n", model.KindMultiplier},
		{"**🤖 Auto-Clickers:**\n", model.KindAutoClicker},
	}
	for _, section := range sections {
		items := c.ByKind(section.kind)
		if len(items) == 0 {
			continue
		}
		b.WriteString(section.title)
		for _, item := range items {
			fmt.Fprintf(&b, "%s**%s** - 🍪 %s cookies\n   %s\n   Command: `!buy %s`\n\n",
				emojiPrefix(item), item.Name, commas(item.Cost), item.Description, item.ID)
		}
	}

	b.WriteString("💡 **Tips:**\n")
	b.WriteString("• Buy single: `!buy wooden_spoon`\n")
	b.WriteString("• Buy multiple: `!buy wooden_spoon 3`")
	return b.String()
}

func emojiPrefix(item model.CatalogItem) string {
	if item.Emoji == "" {
		return ""
	}
	return item.Emoji + " "
}

func formatInventory(c *catalog.Catalog, p model.Profile) string {
	var b strings.Builder
	b.WriteString("📦 **Your Inventory** 📦\n\n")

	shown := 0
	for _, section := range []struct {
		title string
		kind  model.ItemKind
	}{
		{"**📈 Click Multipliers:**\n", model.KindMultiplier},
		{"**🤖 Auto-Clickers:**\n", model.KindAutoClicker},
	} {
		header := false
		for _, item := range c.ByKind(section.kind) {
			qty := p.Inventory[item.ID]
			if qty <= 0 {
				continue
			}
			if !header {
				if shown > 0 {
					b.WriteString("\n")
				}
				b.WriteString(section.title)
				header = true
			}
			fmt.Fprintf(&b, "• **%s** x%d - %s\n", item.Name, qty, item.Description)
			shown++
		}
	}
	if shown == 0 {
		return emptyInventory
	}

	if p.ClickBonus > 0 {
		fmt.Fprintf(&b, "\n🎯 **Current click bonus: +%d cookies per click**", p.ClickBonus)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLeaderboard(entries []model.RankEntry, names *nameBook) string {
	if len(entries) == 0 {
		return emptyLeaderboard
	}

	var b strings.Builder
	b.WriteString("🏆 **Cookie Leaderboard** 🏆\n\n")
	for i, e := range entries {
		medal := strconv.Itoa(i+1) + "."
		if i < len(medals) {
			medal = medals[i]
		}
		fmt.Fprintf(&b, "%s **%s** - 🍪 %d cookies\n", medal, names.lookup(e.UserID), e.Balance)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHelp(maxQuantity int64) string {
	return "🍪 **Cookie Clicker Commands** 🍪\n\n" +
		"`!click` - earn 1-5 cookies plus your upgrades\n" +
		"`!cookies` - show your balance\n" +
		"`!daily` - claim 10-25 bonus cookies once a day\n" +
		"`!shop` - list items for sale\n" +
		fmt.Sprintf("`!buy <item> [qty]` - buy up to %d items at once\n", maxQuantity) +
		"`!inv` - show your items\n" +
		"`!give @user <amount>` - gift cookies\n" +
		"`!leaderboard` - top cookie holders"
}

// commas formats n with thousands separators.
func commas(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
