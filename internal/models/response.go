package models

// APIResponse is the uniform envelope for every JSON body the gateway
// originates. Proxied downstream bodies are relayed untouched and do
// not pass through it.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// ErrorDetail is the error block inside a failed APIResponse.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(requestID string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	}
}

// NewErrorResponse wraps a classified failure in an error envelope.
func NewErrorResponse(requestID, code, message string, details map[string]interface{}) APIResponse {
	return APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	}
}
