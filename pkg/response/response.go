// Package response defines the JSON envelope every endpoint writes. Success
// and failure bodies share one shape so clients branch on status, and so
// failure bodies carry nothing beyond the envelope and a message.
package response

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the wire envelope. Exactly one of Data and Error is set.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success wraps payload data in a success envelope
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     statusSuccess,
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error wraps a client-safe message in a failure envelope. Callers pass the
// mapped taxonomy message, never a raw internal error string.
func Error(statusCode int, err string) Response {
	return Response{
		Status:     statusError,
		StatusCode: statusCode,
		Error:      err,
	}
}
