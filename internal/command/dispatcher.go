package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/model"
	"cookieboy-api/internal/ratelimit"
)

// Mention is a user referenced in a chat message, resolved by the chat bridge.
type Mention struct {
	ID          string `json:"id"`
	Bot         bool   `json:"bot"`
	DisplayName string `json:"display_name"`
}

// Message is one incoming chat message.
type Message struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Bot         bool      `json:"bot,omitempty"`
	Text        string    `json:"text"`
	Mentions    []Mention `json:"mentions,omitempty"`
}

// Economy is the engine surface the dispatcher drives.
type Economy interface {
	Click(ctx context.Context, userID string) (model.ClickResult, error)
	Balance(ctx context.Context, userID string) (int64, error)
	DailyClaim(ctx context.Context, userID string, now time.Time) (model.DailyResult, error)
	Buy(ctx context.Context, userID, itemID string, quantity int64) (model.PurchaseResult, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64) (model.TransferResult, error)
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// Ranker serves leaderboards.
type Ranker interface {
	TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error)
}

// Recorder receives command metrics.
type Recorder interface {
	Command(name string)
	Throttled()
}

type nopRecorder struct{}

func (nopRecorder) Command(string) {}
func (nopRecorder) Throttled()     {}

// Config holds dispatcher settings.
type Config struct {
	MaxPurchaseQuantity int64
	LeaderboardSize     int
	// Limiter is optional; nil disables per-user throttling.
	Limiter  *ratelimit.KeyedLimiter
	Recorder Recorder
}

// Dispatcher turns chat messages into economy operations and replies.
type Dispatcher struct {
	economy  Economy
	ranker   Ranker
	catalog  *catalog.Catalog
	config   Config
	names    *nameBook
	recorder Recorder
	now      func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(economy Economy, ranker Ranker, cat *catalog.Catalog, config Config) *Dispatcher {
	if config.MaxPurchaseQuantity <= 0 {
		config.MaxPurchaseQuantity = 100
	}
	if config.LeaderboardSize <= 0 {
		config.LeaderboardSize = 5
	}
	recorder := config.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Dispatcher{
		economy:  economy,
		ranker:   ranker,
		catalog:  cat,
		config:   config,
		names:    newNameBook(10000),
		recorder: recorder,
		now:      time.Now,
	}
}

// Handle processes one message. handled is false when the message is not a
// command or comes from a bot; no reply should be sent then. A non-nil error
// is a system failure; user mistakes are answered in reply.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (reply string, handled bool, err error) {
	if msg.Bot || msg.UserID == "" || len(msg.UserID) > model.MaxUserIDLength {
		return "", false, nil
	}

	d.names.remember(msg.UserID, msg.DisplayName)
	for _, m := range msg.Mentions {
		d.names.remember(m.ID, m.DisplayName)
	}

	cmd, ok := Parse(msg.Text)
	if !ok {
		return "", false, nil
	}

	if d.config.Limiter != nil && !d.config.Limiter.Allow(msg.UserID) {
		d.recorder.Throttled()
		return throttledReply, true, nil
	}
	d.recorder.Command(cmd.Name)

	reply, err = d.run(ctx, cmd, msg)
	if err != nil {
		log.Printf("[Dispatcher] %s for %s failed: %v", cmd.Name, msg.UserID, err)
		return "", true, err
	}
	return reply, true, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd Command, msg Message) (string, error) {
	switch cmd.Name {
	case Click:
		res, err := d.economy.Click(ctx, msg.UserID)
		if err != nil {
			return "", err
		}
		return formatClick(res), nil

	case Cookies:
		balance, err := d.economy.Balance(ctx, msg.UserID)
		if err != nil {
			return "", err
		}
		return formatBalance(balance), nil

	case Daily:
		res, err := d.economy.DailyClaim(ctx, msg.UserID, d.now())
		var claimed *model.AlreadyClaimedError
		if errors.As(err, &claimed) {
			return formatAlreadyClaimed(claimed.Remaining), nil
		}
		if err != nil {
			return "", err
		}
		return formatDaily(res), nil

	case Shop:
		return formatShop(d.catalog), nil

	case Inventory:
		profile, err := d.economy.Profile(ctx, msg.UserID)
		if err != nil {
			return "", err
		}
		return formatInventory(d.catalog, profile), nil

	case Leaderboard:
		entries, err := d.ranker.TopBalances(ctx, d.config.LeaderboardSize)
		if err != nil {
			return "", err
		}
		return formatLeaderboard(entries, d.names), nil

	case Give:
		return d.give(ctx, cmd, msg)

	case Buy:
		return d.buy(ctx, cmd, msg)

	case Help:
		return formatHelp(d.config.MaxPurchaseQuantity), nil
	}
	return "", fmt.Errorf("unhandled command %q", cmd.Name)
}

func (d *Dispatcher) give(ctx context.Context, cmd Command, msg Message) (string, error) {
	if len(cmd.Args) != 2 {
		return giveUsage, nil
	}
	if len(msg.Mentions) == 0 {
		return giveNoMention, nil
	}

	recipient := msg.Mentions[0]
	if recipient.ID == "" || len(recipient.ID) > model.MaxUserIDLength {
		return giveNoMention, nil
	}
	if recipient.ID == msg.UserID {
		return giveSelf, nil
	}
	if recipient.Bot {
		return giveBot, nil
	}

	amount, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil || amount <= 0 {
		return giveBadAmount, nil
	}

	res, err := d.economy.Transfer(ctx, msg.UserID, recipient.ID, amount)
	var short *model.InsufficientFundsError
	switch {
	case errors.As(err, &short):
		return formatGiveShort(short.Have, amount), nil
	case errors.Is(err, model.ErrSelfTransfer):
		return giveSelf, nil
	case errors.Is(err, model.ErrInvalidAmount):
		return giveBadAmount, nil
	case err != nil:
		return "", err
	}

	name := recipient.DisplayName
	if name == "" {
		name = d.names.lookup(recipient.ID)
	}
	return formatTransfer(res, name), nil
}

func (d *Dispatcher) buy(ctx context.Context, cmd Command, msg Message) (string, error) {
	if len(cmd.Args) < 1 || len(cmd.Args) > 2 {
		return buyUsage, nil
	}

	itemID := strings.ToLower(cmd.Args[0])
	quantity := int64(1)
	if len(cmd.Args) == 2 {
		q, err := strconv.ParseInt(cmd.Args[1], 10, 64)
		if err != nil || q <= 0 {
			return buyBadQuantity, nil
		}
		if q > d.config.MaxPurchaseQuantity {
			return formatMaxQuantity(d.config.MaxPurchaseQuantity), nil
		}
		quantity = q
	}

	res, err := d.economy.Buy(ctx, msg.UserID, itemID, quantity)
	var short *model.InsufficientFundsError
	switch {
	case errors.As(err, &short):
		item, _ := d.catalog.Lookup(itemID)
		return formatBuyShort(item, quantity, short.Need, short.Have), nil
	case errors.Is(err, model.ErrItemNotFound):
		return buyUnknownItem, nil
	case errors.Is(err, model.ErrInvalidQuantity):
		return formatMaxQuantity(d.config.MaxPurchaseQuantity), nil
	case err != nil:
		return "", err
	}
	return formatPurchase(res), nil
}
