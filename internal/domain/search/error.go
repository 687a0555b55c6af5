package search

// Code classifies a discovery search failure.
type Code string

// Discovery failure codes. Only EmptyQuery is non-retryable by construction:
// it is an input error, not a transient fault.
const (
	CodeEmptyQuery           Code = "EMPTY_QUERY"
	CodeLLMUnavailable       Code = "LLM_UNAVAILABLE"
	CodeEmbeddingUnavailable Code = "EMBEDDING_UNAVAILABLE"
	CodeIndexUnavailable     Code = "INDEX_UNAVAILABLE"
	CodeTimeout              Code = "TIMEOUT"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the typed discovery failure returned instead of a Response.
// Collaborator errors are re-classified into this taxonomy at the service
// boundary and never escape raw.
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError creates a typed discovery failure.
func NewError(code Code, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}
