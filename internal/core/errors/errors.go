package errors

import "encoding/json"

// Gateway response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the gateway's JSON reply shape for both success and error
// cases. Result carries the serialized ledger record on successful writes.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Error builds an error-status response.
func Error(message string) Response {
	return Response{Status: StatusError, Message: message}
}

// Success builds a success-status response carrying the ledger record.
func Success(message string, result []byte) Response {
	return Response{Status: StatusSuccess, Message: message, Result: result}
}
