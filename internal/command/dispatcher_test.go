package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/model"
	"cookieboy-api/internal/ratelimit"
	"cookieboy-api/internal/repository"
	"cookieboy-api/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEconomy struct {
	mock.Mock
}

func (m *mockEconomy) Click(ctx context.Context, userID string) (model.ClickResult, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.ClickResult), args.Error(1)
}

func (m *mockEconomy) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEconomy) DailyClaim(ctx context.Context, userID string, now time.Time) (model.DailyResult, error) {
	args := m.Called(ctx, userID, now)
	return args.Get(0).(model.DailyResult), args.Error(1)
}

func (m *mockEconomy) Buy(ctx context.Context, userID, itemID string, quantity int64) (model.PurchaseResult, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	return args.Get(0).(model.PurchaseResult), args.Error(1)
}

func (m *mockEconomy) Transfer(ctx context.Context, fromID, toID string, amount int64) (model.TransferResult, error) {
	args := m.Called(ctx, fromID, toID, amount)
	return args.Get(0).(model.TransferResult), args.Error(1)
}

func (m *mockEconomy) Profile(ctx context.Context, userID string) (model.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Profile), args.Error(1)
}

type mockRanker struct {
	mock.Mock
}

func (m *mockRanker) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.RankEntry), args.Error(1)
}

func newMockDispatcher(t *testing.T, cfg Config) (*Dispatcher, *mockEconomy, *mockRanker) {
	t.Helper()
	eco := &mockEconomy{}
	ranker := &mockRanker{}
	t.Cleanup(func() {
		eco.AssertExpectations(t)
		ranker.AssertExpectations(t)
	})
	return NewDispatcher(eco, ranker, catalog.Default(), cfg), eco, ranker
}

func say(userID, text string, mentions ...Mention) Message {
	return Message{UserID: userID, DisplayName: "user-" + userID, Text: text, Mentions: mentions}
}

func TestDispatcher_IgnoresNonCommands(t *testing.T) {
	d, _, _ := newMockDispatcher(t, Config{})
	ctx := context.Background()

	for _, msg := range []Message{
		say("1", "hello there"),
		{UserID: "2", Text: "!click", Bot: true},
		{UserID: "", Text: "!click"},
	} {
		reply, handled, err := d.Handle(ctx, msg)
		require.NoError(t, err)
		require.False(t, handled)
		require.Empty(t, reply)
	}
}

func TestDispatcher_Give(t *testing.T) {
	ctx := context.Background()
	bob := Mention{ID: "2", DisplayName: "Bob"}

	t.Run("input checks never reach the engine", func(t *testing.T) {
		d, _, _ := newMockDispatcher(t, Config{})
		cases := map[string]Message{
			giveUsage:     say("1", "!give <@2>"),
			giveNoMention: say("1", "!give bob 10"),
			giveSelf:      say("1", "!give <@1> 10", Mention{ID: "1"}),
			giveBot:       say("1", "!give <@9> 10", Mention{ID: "9", Bot: true}),
			giveBadAmount: say("1", "!give <@2> ten", bob),
		}
		for want, msg := range cases {
			reply, handled, err := d.Handle(ctx, msg)
			require.NoError(t, err)
			require.True(t, handled)
			require.Equal(t, want, reply, msg.Text)
		}

		reply, _, _ := d.Handle(ctx, say("1", "!give <@2> -5", bob))
		require.Equal(t, giveBadAmount, reply)
	})

	t.Run("success", func(t *testing.T) {
		d, eco, _ := newMockDispatcher(t, Config{})
		eco.On("Transfer", mock.Anything, "1", "2", int64(10)).
			Return(model.TransferResult{From: "1", To: "2", Amount: 10, NewFromBalance: 5, NewToBalance: 12}, nil)

		reply, handled, err := d.Handle(ctx, say("1", "!give <@2> 10", bob))
		require.NoError(t, err)
		require.True(t, handled)
		require.Equal(t, "🎁 You gave 🍪 **10** cookies to **Bob**!\nYour cookies: **5** | Their cookies: **12**", reply)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		d, eco, _ := newMockDispatcher(t, Config{})
		eco.On("Transfer", mock.Anything, "1", "2", int64(10)).
			Return(model.TransferResult{}, &model.InsufficientFundsError{Need: 10, Have: 5})

		reply, _, err := d.Handle(ctx, say("1", "!give <@2> 10", bob))
		require.NoError(t, err)
		require.Equal(t, "You don't have enough cookies! You have 🍪 **5** cookies, but tried to give **10**.", reply)
	})
}

func TestDispatcher_Buy(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity defaults to one and item id is lowercased", func(t *testing.T) {
		d, eco, _ := newMockDispatcher(t, Config{})
		spoon, _ := catalog.Default().Lookup("wooden_spoon")
		eco.On("Buy", mock.Anything, "1", "wooden_spoon", int64(1)).
			Return(model.PurchaseResult{Item: spoon, Quantity: 1, TotalCost: 50, NewBalance: 25, NewQuantity: 1}, nil)

		reply, _, err := d.Handle(ctx, say("1", "!buy Wooden_Spoon"))
		require.NoError(t, err)
		require.Equal(t, "✅ **Purchase Successful!** ✅\nYou bought: **Wooden Spoon**\nCost: 🍪 **50** cookies\nRemaining cookies: **25**", reply)
	})

	t.Run("rejections", func(t *testing.T) {
		d, eco, _ := newMockDispatcher(t, Config{MaxPurchaseQuantity: 10})
		eco.On("Buy", mock.Anything, "1", "diamond_oven", int64(2)).
			Return(model.PurchaseResult{}, model.ErrItemNotFound)
		eco.On("Buy", mock.Anything, "1", "golden_whisk", int64(3)).
			Return(model.PurchaseResult{}, &model.InsufficientFundsError{Need: 3000, Have: 12})

		cases := map[string]string{
			"!buy":                 buyUsage,
			"!buy a b c":           buyUsage,
			"!buy wooden_spoon x":  buyBadQuantity,
			"!buy wooden_spoon 0":  buyBadQuantity,
			"!buy wooden_spoon 11": "❌ Maximum purchase quantity is 10 items at once!",
			"!buy diamond_oven 2":  buyUnknownItem,
			"!buy golden_whisk 3":  "❌ Not enough cookies! You need 🍪 **3000** cookies (1000 × 3) but only have **12**.",
		}
		for text, want := range cases {
			reply, handled, err := d.Handle(ctx, say("1", text))
			require.NoError(t, err)
			require.True(t, handled)
			require.Equal(t, want, reply, text)
		}
	})
}

func TestDispatcher_DailyAlreadyClaimed(t *testing.T) {
	d, eco, _ := newMockDispatcher(t, Config{})
	eco.On("DailyClaim", mock.Anything, "1", mock.AnythingOfType("time.Time")).
		Return(model.DailyResult{}, &model.AlreadyClaimedError{Remaining: 3*time.Hour + 25*time.Minute})

	reply, _, err := d.Handle(context.Background(), say("1", "!daily"))
	require.NoError(t, err)
	require.Equal(t, "⏰ You already claimed your daily bonus! Try again in **3h 25m**.", reply)
}

func TestDispatcher_Leaderboard(t *testing.T) {
	d, _, ranker := newMockDispatcher(t, Config{})
	ranker.On("TopBalances", mock.Anything, 5).
		Return([]model.RankEntry{{UserID: "7", Balance: 30}}, nil)

	d.Handle(context.Background(), say("7", "hi"))
	reply, _, err := d.Handle(context.Background(), say("1", "!leaderboard"))
	require.NoError(t, err)
	require.Equal(t, "🏆 **Cookie Leaderboard** 🏆\n\n🥇 **user-7** - 🍪 30 cookies", reply)
}

func TestDispatcher_SystemError(t *testing.T) {
	d, eco, _ := newMockDispatcher(t, Config{})
	boom := errors.New("disk on fire")
	eco.On("Click", mock.Anything, "1").Return(model.ClickResult{}, boom)

	reply, handled, err := d.Handle(context.Background(), say("1", "!click"))
	require.ErrorIs(t, err, boom)
	require.True(t, handled)
	require.Empty(t, reply)
}

type countingRecorder struct {
	commands  map[string]int
	throttled int
}

func (r *countingRecorder) Command(name string) { r.commands[name]++ }
func (r *countingRecorder) Throttled()          { r.throttled++ }

func TestDispatcher_Throttled(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{PerMinute: 1, Burst: 2})
	t.Cleanup(limiter.Close)
	rec := &countingRecorder{commands: map[string]int{}}

	d, eco, _ := newMockDispatcher(t, Config{Limiter: limiter, Recorder: rec})
	eco.On("Balance", mock.Anything, "1").Return(int64(3), nil).Twice()

	for i := 0; i < 2; i++ {
		reply, _, err := d.Handle(context.Background(), say("1", "!cookies"))
		require.NoError(t, err)
		require.Equal(t, "You have 🍪 **3** cookies.", reply)
	}
	reply, handled, err := d.Handle(context.Background(), say("1", "!cookies"))
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, throttledReply, reply)
	require.Equal(t, 2, rec.commands[Cookies])
	require.Equal(t, 1, rec.throttled)
}

func TestDispatcher_EndToEnd(t *testing.T) {
	repo := repository.NewMemoryEconomyRepository()
	cat := catalog.Default()
	eco := service.NewEconomyService(repo, cat, service.DefaultEconomyConfig())
	ranking := service.NewRankingService(eco, nil, 0)
	d := NewDispatcher(eco, ranking, cat, Config{})
	ctx := context.Background()

	require.NoError(t, repo.Atomic(ctx, func(tx repository.Tx) error {
		return tx.SetBalance(ctx, "1", 200)
	}))

	reply, _, err := d.Handle(ctx, say("1", "!buy wooden_spoon 3"))
	require.NoError(t, err)
	require.Contains(t, reply, "Total cost: 🍪 **150** cookies (50 each)")
	require.Contains(t, reply, "Remaining cookies: **50**")

	reply, _, err = d.Handle(ctx, say("1", "!inv"))
	require.NoError(t, err)
	require.Contains(t, reply, "• **Wooden Spoon** x3")
	require.Contains(t, reply, "+3 cookies per click")

	reply, _, err = d.Handle(ctx, say("1", "!give <@2> 20", Mention{ID: "2", DisplayName: "Bob"}))
	require.NoError(t, err)
	require.Contains(t, reply, "Your cookies: **30** | Their cookies: **20**")

	reply, _, err = d.Handle(ctx, say("1", "!daily"))
	require.NoError(t, err)
	require.Contains(t, reply, "Daily Bonus Claimed")
	reply, _, err = d.Handle(ctx, say("1", "!daily"))
	require.NoError(t, err)
	require.Contains(t, reply, "already claimed")

	reply, _, err = d.Handle(ctx, say("1", "!leaderboard"))
	require.NoError(t, err)
	require.Contains(t, reply, "🥇 **user-1**")
	require.Contains(t, reply, "🥈 **Bob** - 🍪 20 cookies")
}
