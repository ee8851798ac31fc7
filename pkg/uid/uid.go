package uid

import "github.com/google/uuid"

// New returns a random UUIDv4 string.
func New() string {
	return uuid.New().String()
}

// NewOrdered returns a UUIDv7 string, which sorts by creation time.
// Falls back to a random UUID if the clock source fails.
func NewOrdered() string {
	id, err := uuid.NewV7()
	if err != nil {
		return New()
	}
	return id.String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
