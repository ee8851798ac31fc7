package command

import "strings"

// Command names.
const (
	Click       = "click"
	Cookies     = "cookies"
	Leaderboard = "leaderboard"
	Give        = "give"
	Daily       = "daily"
	Shop        = "shop"
	Buy         = "buy"
	Inventory   = "inventory"
	Help        = "help"
)

// Prefix starts every command.
const Prefix = "!"

// Command is a parsed chat command.
type Command struct {
	Name string
	Args []string
}

var aliases = map[string]string{
	"click":       Click,
	"cookies":     Cookies,
	"leaderboard": Leaderboard,
	"give":        Give,
	"daily":       Daily,
	"shop":        Shop,
	"buy":         Buy,
	"inv":         Inventory,
	"inventory":   Inventory,
	"help":        Help,
}

// takesArgs lists commands that accept arguments. The others only match
// when sent alone.
var takesArgs = map[string]bool{
	Give: true,
	Buy:  true,
}

// Parse recognises a command in chat text. Keywords are case-insensitive;
// arguments keep their original case.
func Parse(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], Prefix) {
		return Command{}, false
	}

	name, ok := aliases[strings.ToLower(strings.TrimPrefix(fields[0], Prefix))]
	if !ok {
		return Command{}, false
	}

	args := fields[1:]
	if len(args) > 0 && !takesArgs[name] {
		return Command{}, false
	}
	return Command{Name: name, Args: args}, true
}
