package httpapi

import (
	"encoding/json"
	"net/http"
)

// Code is the machine-readable reason carried by every error response.
// Each code maps to exactly one HTTP status.
type Code string

const (
	CodeInvalidBody       Code = "NEWSLETTER_INVALID_BODY"
	CodeValidationFailed  Code = "NEWSLETTER_VALIDATION_FAILED"
	CodeNewsletterFailure Code = "NEWSLETTER_INTERNAL"

	CodeSubscriptionInvalid Code = "SUBSCRIPTION_INVALID"
	CodeTokenUnknown        Code = "SUBSCRIPTION_TOKEN_UNKNOWN"
	CodeSubscriptionFailure Code = "SUBSCRIPTION_INTERNAL"

	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeInternal         Code = "INTERNAL_SERVER_ERROR"
)

var codeStatus = map[Code]int{
	CodeInvalidBody:         http.StatusBadRequest,
	CodeValidationFailed:    http.StatusBadRequest,
	CodeSubscriptionInvalid: http.StatusBadRequest,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeTokenUnknown:        http.StatusUnauthorized,
	CodeNotFound:            http.StatusNotFound,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
}

// Status is the HTTP status sent with c. Unknown codes are server errors.
func (c Code) Status() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    Code              `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, code Code, message string, meta map[string]string) error {
	return WriteJSON(w, code.Status(), &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}
