package response

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Data      interface{} `json:"data"`
	Error     *ErrorBody  `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Success wraps data in the envelope.
func Success(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	JSON(w, status, Envelope{Data: data, RequestID: chimw.GetReqID(r.Context())})
}

// Fail writes an error envelope for code.
func Fail(w http.ResponseWriter, r *http.Request, status int, code ErrCode) {
	FailWithFields(w, r, status, code, nil)
}

// FailWithFields writes an error envelope carrying per-field messages.
func FailWithFields(w http.ResponseWriter, r *http.Request, status int, code ErrCode, fields map[string]string) {
	JSON(w, status, Envelope{
		Error: &ErrorBody{
			Code:    code,
			Message: GetMessage(code),
			Fields:  fields,
		},
		RequestID: chimw.GetReqID(r.Context()),
	})
}
