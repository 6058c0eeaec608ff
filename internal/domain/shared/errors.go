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
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists          = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation             = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrentModification = NewDomainError("CONCURRENT_MODIFICATION", "Resource was modified by another process")
	ErrInvalidTransition      = NewDomainError("INVALID_TRANSITION", "Status transition not allowed")
	ErrInsufficientStock      = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrCurrencyMismatch       = NewDomainError("CURRENCY_MISMATCH", "Operands have different currencies")
	ErrUnbalancedEntry        = NewDomainError("UNBALANCED_ENTRY", "Journal entries do not balance")
	ErrMovementNotFound       = NewDomainError("MOVEMENT_NOT_FOUND", "Stock movement not found")
	ErrAlreadyReversed        = NewDomainError("ALREADY_REVERSED", "Record has already been reversed")
)

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
