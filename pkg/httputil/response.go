// Package httputil provides HTTP handler utilities: response envelopes,
// request parsing, list-parameter normalization, and request middleware.
package httputil

import (
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier/pkg/apperr"
)

// DataResponse is the envelope for single-resource responses.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ListResponse is the envelope for collection responses.
type ListResponse struct {
	Data       interface{} `json:"data"`
	Pagination Meta        `json:"pagination"`
}

// ErrorBody is the envelope for error responses.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteData writes a 200 response with a single-resource envelope
func WriteData(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, DataResponse{Data: data})
}

// WriteCreated writes a 201 response with a single-resource envelope
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, DataResponse{Data: data})
}

// WriteList writes a 200 response with the collection envelope. A nil slice
// is encoded as an empty array, never null.
func WriteList(w http.ResponseWriter, data interface{}, meta Meta) error {
	if data == nil {
		data = []struct{}{}
	} else if v := reflect.ValueOf(data); v.Kind() == reflect.Slice && v.IsNil() {
		data = []struct{}{}
	}
	return WriteJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: meta})
}

// WriteNoContent writes a successful response with no body (204)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError classifies err and writes the error envelope. Internal causes
// are logged with the request's correlating fields and masked from the
// response body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	if ae.Code == apperr.CodeInternal {
		logrus.WithFields(logrus.Fields{
			"request_id": RequestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
	}
	WriteJSON(w, apperr.HTTPStatus(ae.Code), ErrorBody{
		Error: ErrorDetail{Code: string(ae.Code), Message: ae.Message},
	})
}

// WriteValidationError writes a validation error envelope (400)
func WriteValidationError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apperr.Validation(message))
}
