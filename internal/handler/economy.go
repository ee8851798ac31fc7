package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/model"
	"cookieboy-api/pkg/apierror"
	"cookieboy-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

// EconomyAPI is the engine surface exposed over HTTP.
type EconomyAPI interface {
	Click(ctx context.Context, userID string) (model.ClickResult, error)
	DailyClaim(ctx context.Context, userID string, now time.Time) (model.DailyResult, error)
	Buy(ctx context.Context, userID, itemID string, quantity int64) (model.PurchaseResult, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64) (model.TransferResult, error)
	Profile(ctx context.Context, userID string) (model.Profile, error)
	History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}

// Ranker serves leaderboards.
type Ranker interface {
	TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error)
}

// EconomyHandler handles economy HTTP requests for bot bridges and dashboards.
type EconomyHandler struct {
	economy         EconomyAPI
	ranker          Ranker
	catalog         *catalog.Catalog
	leaderboardSize int
	now             func() time.Time
}

// NewEconomyHandler creates a new economy handler.
func NewEconomyHandler(economy EconomyAPI, ranker Ranker, cat *catalog.Catalog, leaderboardSize int) *EconomyHandler {
	if leaderboardSize <= 0 {
		leaderboardSize = 5
	}
	return &EconomyHandler{
		economy:         economy,
		ranker:          ranker,
		catalog:         cat,
		leaderboardSize: leaderboardSize,
		now:             time.Now,
	}
}

// BuyRequest is the body of POST /economy/{user_id}/buy.
type BuyRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// GiveRequest is the body of POST /economy/{user_id}/give.
type GiveRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func userParam(r *http.Request) (string, *apierror.Error) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		return "", apierror.BadRequest("user_id is required")
	}
	if len(userID) > model.MaxUserIDLength {
		return "", apierror.BadRequest("user_id is too long")
	}
	return userID, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) *apierror.Error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest("invalid JSON body")
	}
	return nil
}

func limitParam(r *http.Request, def, maxLimit int) (int, *apierror.Error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, apierror.ValidationError("invalid limit", apierror.FieldError{
			Field:   "limit",
			Message: "must be an integer between 1 and " + strconv.Itoa(maxLimit),
		})
	}
	return n, nil
}

// Catalog handles GET /api/v1/catalog
func (h *EconomyHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.catalog.Items())
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *EconomyHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := limitParam(r, h.leaderboardSize, 100)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	entries, err := h.ranker.TopBalances(r.Context(), limit)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.List(w, entries, limit, len(entries))
}

// Profile handles GET /api/v1/economy/{user_id}
func (h *EconomyHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	profile, err := h.economy.Profile(r.Context(), userID)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, profile)
}

// Click handles POST /api/v1/economy/{user_id}/click
func (h *EconomyHandler) Click(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.economy.Click(r.Context(), userID)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, result)
}

// Daily handles POST /api/v1/economy/{user_id}/daily
func (h *EconomyHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.economy.DailyClaim(r.Context(), userID, h.now())
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, result)
}

// Buy handles POST /api/v1/economy/{user_id}/buy
func (h *EconomyHandler) Buy(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req BuyRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if req.ItemID == "" {
		response.Error(w, apierror.ValidationError("item_id is required",
			apierror.FieldError{Field: "item_id", Message: "required"}))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.economy.Buy(r.Context(), userID, strings.ToLower(req.ItemID), req.Quantity)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, result)
}

// Give handles POST /api/v1/economy/{user_id}/give
func (h *EconomyHandler) Give(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req GiveRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	req.To = strings.TrimSpace(req.To)
	if req.To == "" {
		response.Error(w, apierror.ValidationError("to is required",
			apierror.FieldError{Field: "to", Message: "required"}))
		return
	}
	if len(req.To) > model.MaxUserIDLength {
		response.Error(w, apierror.ValidationError("to is too long",
			apierror.FieldError{Field: "to", Message: "at most 128 bytes"}))
		return
	}

	result, err := h.economy.Transfer(r.Context(), userID, req.To, req.Amount)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.OK(w, result)
}

// History handles GET /api/v1/economy/{user_id}/history
func (h *EconomyHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	limit, apiErr := limitParam(r, 20, 100)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	entries, err := h.economy.History(r.Context(), userID, limit)
	if err != nil {
		writeEconomyError(w, r, err)
		return
	}
	response.List(w, entries, limit, len(entries))
}
