package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/draft"
)

type redirectBody struct {
	Error redirectDetail `json:"error"`
}

type redirectDetail struct {
	Code         string     `json:"code"`
	Message      string     `json:"message"`
	RedirectStep draft.Step `json:"redirect_step"`
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var redirect *draft.RedirectError
	if errors.As(err, &redirect) {
		httpx.WriteJSON(w, http.StatusConflict, redirectBody{Error: redirectDetail{
			Code:         "step_required",
			Message:      fmt.Sprintf("please complete the %s step first", redirect.To),
			RedirectStep: redirect.To,
		}})
		return
	}

	status := apperr.HTTPStatus(err)
	code, msg := apperr.Public(err)
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		logger.Warn("request failed", "route", r.Pattern, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "route", r.Pattern, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
	}
	httpx.WriteJSONError(w, status, code, msg)
}

var errInvalidJSON = apperr.Validation("invalid_json", "request body must be valid JSON")

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidJSON.WithMessage("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("body_too_large", "request body is too large")
		}
		return errInvalidJSON.WithError(err)
	}
	return nil
}
