package handlers

import "net/http"

// API error codes. Clients branch on these, not on messages.
const (
	CodeEmailNotFound        = "EMAIL_NOT_FOUND"
	CodeEmailDeleted         = "EMAIL_DELETED"
	CodeNotParticipant       = "NOT_PARTICIPANT"
	CodeParentNotFound       = "PARENT_NOT_FOUND"
	CodeMissingField         = "MISSING_FIELD"
	CodeInvalidField         = "INVALID_FIELD"
	CodeUnknownField         = "UNKNOWN_FIELD"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeInvalidUUID          = "INVALID_UUID"
	CodeInvalidPage          = "INVALID_PAGE"
	CodeInvalidName          = "INVALID_NAME"
	CodeMissingViewer        = "MISSING_VIEWER"
	CodeInvalidViewer        = "INVALID_VIEWER"
	CodeUnknownParameter     = "UNKNOWN_PARAMETER"
	CodeDuplicateParameter   = "DUPLICATE_PARAMETER"
	CodeNameTaken            = "NAME_TAKEN"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
)

// codeStatus maps error codes to HTTP statuses. Codes not listed are 400.
var codeStatus = map[string]int{
	CodeEmailNotFound:        http.StatusNotFound,
	CodeParentNotFound:       http.StatusNotFound,
	CodeEmailDeleted:         http.StatusGone,
	CodeNotParticipant:       http.StatusForbidden,
	CodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
}

// apiError pairs a code with a human-readable message; handlers pass it to
// Handler.Error for the wire envelope.
type apiError struct {
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func errorf(code, message string) *apiError {
	return &apiError{Code: code, Message: message}
}
