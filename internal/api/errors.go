package api

import (
	"encoding/json"
	"net/http"

	"github.com/household-ledger/internal/ledgererr"
)

// graphQLError is one entry of the response's errors list.
type graphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// operationResponse is the {data, errors} envelope.
type operationResponse struct {
	Data   interface{}    `json:"data,omitempty"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// internalErrorMessage is what clients see for any non-user-facing failure.
// The real error is logged server-side only.
const internalErrorMessage = "internal server error"

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondOperationError maps err into the envelope. NotFound, validation
// and conflict messages pass through verbatim; everything else is
// generalized so schema and implementation details never leak.
func respondOperationError(w http.ResponseWriter, err error) {
	message := internalErrorMessage
	extensions := map[string]interface{}{"code": "INTERNAL_ERROR"}
	if ledgererr.UserFacing(err) {
		message = err.Error()
		extensions["code"] = string(ledgererr.CategoryOf(err))
	}
	respondJSON(w, ledgererr.HTTPStatus(err), operationResponse{
		Errors: []graphQLError{{Message: message, Extensions: extensions}},
	})
}

func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
