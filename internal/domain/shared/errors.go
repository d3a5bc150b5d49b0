package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyFinalised   = NewDomainError("ALREADY_FINALISED", "Form has already been finalised")
	ErrUnsavedChanges     = NewDomainError("UNSAVED_CHANGES", "All changes must be saved before finalising")
	ErrLinesUnconfirmed   = NewDomainError("LINES_UNCONFIRMED", "All lines must be confirmed before finalising")
	ErrSessionClosed      = NewDomainError("SESSION_CLOSED", "Editing session has been closed")
	ErrValuesDoNotBalance = NewDomainError("VALUES_DO_NOT_BALANCE", "Line values do not balance")
)
