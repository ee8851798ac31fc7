package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"cookieboy-api/pkg/apierror"
)

// Response represents a standard API response.
type Response struct {
	Success bool  `json:"success"`
	Data    any   `json:"data,omitempty"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Meta describes a bounded list.
type Meta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// JSON sends a success envelope with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, Response{Success: true, Data: data})
}

// List sends a success envelope for a bounded list.
func List(w http.ResponseWriter, data any, limit, count int) {
	write(w, http.StatusOK, Response{Success: true, Data: data, Meta: &Meta{Limit: limit, Count: count}})
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Error sends an error envelope. Non-API errors become a generic 500.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	apierror.InternalError("").Write(w)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}
