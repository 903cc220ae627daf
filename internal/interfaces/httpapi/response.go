package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

const (
	apiVersion  = "2.0"
	errorDomain = "mlb-betting"

	// Seconds a client should wait before retrying an UNAVAILABLE response.
	retryAfterSeconds = 30
)

// envelope follows the Google JSON style guide: exactly one of data or error.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain   string `json:"domain"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

// errorRules is checked in order; the first rule with a matching target wins.
var errorRules = []struct {
	targets []error
	mapped  mappedError
}{
	{
		targets: []error{comps.ErrInvalidNeighbors, comps.ErrInvalidRollingWeight},
		mapped:  mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidQuery", Status: "INVALID_ARGUMENT"},
	},
	{
		targets: []error{usecase.ErrInvalidInput},
		mapped:  mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"},
	},
	{
		targets: []error{usecase.ErrUnauthorized},
		mapped:  mappedError{HTTPStatus: http.StatusUnauthorized, Reason: "unauthorized", Status: "UNAUTHENTICATED"},
	},
	{
		targets: []error{comps.ErrEmptyPartition, comps.ErrSchemaDrift},
		mapped:  mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "historyUnusable", Status: "FAILED_PRECONDITION"},
	},
	{
		targets: []error{usecase.ErrDependencyUnavailable},
		mapped:  mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable", Status: "UNAVAILABLE"},
	},
	{
		targets: []error{usecase.ErrFeatureDisabled},
		mapped:  mappedError{HTTPStatus: http.StatusNotImplemented, Reason: "featureDisabled", Status: "UNIMPLEMENTED"},
	},
}

var internalError = mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}

func mapError(err error) mappedError {
	for _, rule := range errorRules {
		for _, target := range rule.targets {
			if errors.Is(err, target) {
				return rule.mapped
			}
		}
	}
	return internalError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(_ context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{APIVersion: apiVersion, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	if mapped.HTTPStatus >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, mapped.Reason)
	}
	if mapped.Status == "UNAVAILABLE" {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	writeJSON(w, mapped.HTTPStatus, envelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: err.Error(),
			Status:  mapped.Status,
			Errors:  errorItems(err, mapped),
		},
	})
}

// errorItems reports one item per failed field for validation errors and a
// single item otherwise.
func errorItems(err error, mapped mappedError) []errorItem {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		items := make([]errorItem, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			items = append(items, errorItem{
				Domain:   errorDomain,
				Reason:   "invalidField",
				Message:  "failed " + fe.Tag() + " check",
				Location: fe.Field(),
			})
		}
		return items
	}
	return []errorItem{{Domain: errorDomain, Reason: mapped.Reason, Message: err.Error()}}
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	const msg = "internal server error"
	trace.SpanFromContext(ctx).SetStatus(codes.Error, msg)

	writeJSON(w, http.StatusInternalServerError, envelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    http.StatusInternalServerError,
			Message: msg,
			Status:  internalError.Status,
			Errors:  []errorItem{{Domain: errorDomain, Reason: internalError.Reason, Message: msg}},
		},
	})
}
