package gateway

import (
	"net/http"

	"github.com/rhuss/scrubgate/pkg/chatapi"
)

// writeJSONError writes a structured chatapi.ErrorResponse envelope.
// errType must be one of chatapi's ErrorType constants; passing "" picks
// ErrorTypeServerError.
func writeJSONError(w http.ResponseWriter, status int, errType chatapi.ErrorType, param, message string) {
	if errType == "" {
		errType = chatapi.ErrorTypeServerError
	}
	writeJSON(w, status, chatapi.ErrorResponse{Error: &chatapi.APIError{
		Type:    errType,
		Param:   param,
		Message: message,
	}})
}
