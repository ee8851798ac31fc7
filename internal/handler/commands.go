package handler

import (
	"context"
	"net/http"
	"strings"

	"cookieboy-api/internal/command"
	"cookieboy-api/internal/middleware"
	"cookieboy-api/internal/model"
	"cookieboy-api/pkg/apierror"
	"cookieboy-api/pkg/response"
)

// CommandDispatcher runs chat commands.
type CommandDispatcher interface {
	Handle(ctx context.Context, msg command.Message) (string, bool, error)
}

// CommandHandler exposes the chat command dispatcher over plain HTTP for
// bot bridges that do not keep a websocket open.
type CommandHandler struct {
	dispatcher CommandDispatcher
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(dispatcher CommandDispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// CommandResponse is the reply to one chat message.
type CommandResponse struct {
	Handled   bool   `json:"handled"`
	Reply     string `json:"reply,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Handle handles POST /api/v1/commands
func (h *CommandHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var msg command.Message
	if apiErr := decodeBody(w, r, &msg); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	msg.UserID = strings.TrimSpace(msg.UserID)
	if msg.UserID == "" {
		response.Error(w, apierror.ValidationError("user_id is required",
			apierror.FieldError{Field: "user_id", Message: "required"}))
		return
	}
	if len(msg.UserID) > model.MaxUserIDLength {
		response.Error(w, apierror.ValidationError("user_id is too long",
			apierror.FieldError{Field: "user_id", Message: "at most 128 bytes"}))
		return
	}

	resp := CommandResponse{RequestID: middleware.GetRequestID(r.Context())}
	reply, handled, err := h.dispatcher.Handle(r.Context(), msg)
	if err != nil {
		reply = command.FailureReply
	}
	resp.Handled = handled
	resp.Reply = reply
	response.OK(w, resp)
}
