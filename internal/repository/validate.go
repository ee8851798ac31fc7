package repository

import (
	"fmt"

	"cookieboy-api/internal/model"
)

func checkAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d is negative", model.ErrInvalidAmount, amount)
	}
	return nil
}
