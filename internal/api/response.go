package api

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/storage"
)

type errorBody struct {
	Kind      string `json:"kind"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type envelope struct {
	Result interface{} `json:"result,omitempty"`
	Error  *errorBody  `json:"error,omitempty"`
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) ok(ctx *fasthttp.RequestCtx, result interface{}) {
	s.writeJSON(ctx, fasthttp.StatusOK, envelope{Result: result})
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error, fallback action.ErrorKind) {
	s.failWith(ctx, err, fallback, nil)
}

// failWith writes err, attaching result when the action got as far as a signature.
func (s *Server) failWith(ctx *fasthttp.RequestCtx, err error, fallback action.ErrorKind, result interface{}) {
	if errors.Is(err, action.ErrBusy) {
		s.writeJSON(ctx, fasthttp.StatusConflict, envelope{Error: &errorBody{
			Kind:      "Busy",
			Message:   err.Error(),
			Retryable: true,
		}})
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		s.writeJSON(ctx, fasthttp.StatusNotFound, envelope{Error: &errorBody{Kind: "NotFound", Message: "not found"}})
		return
	}

	e := action.Classify(err, fallback)
	status := statusFor(e.Kind)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("kind", e.Kind.String()), zap.Error(err))
	}
	s.writeJSON(ctx, status, envelope{
		Result: result,
		Error: &errorBody{
			Kind:      e.Kind.String(),
			Field:     e.Field,
			Message:   e.UserMessage(),
			Retryable: e.Kind.Retryable(),
		},
	})
}

func statusFor(k action.ErrorKind) int {
	switch k {
	case action.KindValidation:
		return fasthttp.StatusBadRequest
	case action.KindSignerUnavailable:
		return fasthttp.StatusUnauthorized
	case action.KindSignatureRejected:
		return fasthttp.StatusForbidden
	case action.KindSubmission:
		return fasthttp.StatusUnprocessableEntity
	case action.KindConfirmationTimeout:
		// submitted; the outcome is unknown
		return fasthttp.StatusAccepted
	case action.KindEndpointsExhausted:
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}
