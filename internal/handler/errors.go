package handler

import (
	"errors"
	"log"
	"net/http"

	"cookieboy-api/internal/model"
	"cookieboy-api/pkg/apierror"
	"cookieboy-api/pkg/response"
)

// writeEconomyError maps engine errors onto API errors. Anything that is not
// a domain error is logged and hidden behind a 500.
func writeEconomyError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		short   *model.InsufficientFundsError
		claimed *model.AlreadyClaimedError
	)

	switch {
	case errors.As(err, &short):
		apierror.Domain(http.StatusConflict, apierror.CodeInsufficientFunds, "Not enough cookies").
			WithMeta("need", short.Need).
			WithMeta("have", short.Have).
			WithMeta("shortfall", short.Shortfall()).
			Write(w)
	case errors.As(err, &claimed):
		apierror.Domain(http.StatusTooManyRequests, apierror.CodeAlreadyClaimed, "Daily bonus already claimed").
			WithMeta("remaining_ms", claimed.Remaining.Milliseconds()).
			Write(w)
	case errors.Is(err, model.ErrItemNotFound):
		apierror.Domain(http.StatusNotFound, apierror.CodeItemNotFound, err.Error()).Write(w)
	case errors.Is(err, model.ErrInvalidQuantity):
		apierror.Domain(http.StatusBadRequest, apierror.CodeInvalidQuantity, err.Error()).Write(w)
	case errors.Is(err, model.ErrInvalidAmount):
		apierror.Domain(http.StatusBadRequest, apierror.CodeInvalidAmount, err.Error()).Write(w)
	case errors.Is(err, model.ErrSelfTransfer):
		apierror.Domain(http.StatusBadRequest, apierror.CodeSelfTransfer, err.Error()).Write(w)
	default:
		log.Printf("[Handler] %s %s failed: %v", r.Method, r.URL.Path, err)
		response.Error(w, err)
	}
}
