// Package handler adapts API Gateway chat events to the command
// dispatcher. Every outcome, soft or hard, leaves as a JSON envelope;
// the Lambda itself never returns an error.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/dispatch"
)

// Dispatcher is the command-routing collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Envelope
}

// chatEvent is the inbound request body shape: one chat line, already
// split into verb and arguments by the chat relay.
type chatEvent struct {
	Verb           string   `json:"verb"`
	Args           []string `json:"args"`
	UserID         string   `json:"userId"`
	ConversationID string   `json:"conversationId"`
}

type Handler struct {
	dispatcher Dispatcher
}

// NewHandler creates a Handler.
func NewHandler(d Dispatcher) (*Handler, error) {
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	return &Handler{dispatcher: d}, nil
}

// Handle processes one chat event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)

	var ev chatEvent
	if err := json.Unmarshal([]byte(event.Body), &ev); err != nil {
		return respond(http.StatusBadRequest, dispatch.Failure(dispatch.CodeInvalidInput, "malformed_request_body"), correlationID), nil
	}

	env := h.dispatcher.Dispatch(ctx, dispatch.Request{
		Verb:           ev.Verb,
		Args:           ev.Args,
		UserID:         ev.UserID,
		ConversationID: ev.ConversationID,
	})
	return respond(statusFor(env), env, correlationID), nil
}

// statusFor maps an envelope to an HTTP status. Soft failures are
// success envelopes and stay 200.
func statusFor(env dispatch.Envelope) int {
	if env.Status == dispatch.StatusSuccess {
		return http.StatusOK
	}
	switch env.Code {
	case dispatch.CodeInvalidInput:
		return http.StatusBadRequest
	case dispatch.CodeUpstream:
		return http.StatusBadGateway
	case dispatch.CodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// resolveCorrelationID honors a caller-provided X-Correlation-Id header
// regardless of casing, generating one otherwise.
func resolveCorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Correlation-Id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func respond(status int, env dispatch.Envelope, correlationID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(env)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"status":"error","message":"operation failed","code":1003}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(body),
	}
}
