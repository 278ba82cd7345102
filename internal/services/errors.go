package services

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is a failure the caller can act on. Anything else returned by a
// service is an internal error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

var (
	ErrSourceCardNotFound         = NotFound("source card not found")
	ErrSourceCardUnavailable      = Conflict("source card unavailable")
	ErrDestinationCardNotFound    = NotFound("destination card not found")
	ErrDestinationCardUnavailable = Conflict("destination card unavailable")
	ErrInsufficientFunds          = Conflict("insufficient funds")
	ErrInvalidAmount              = Validation("amount must be a positive value with at most 2 decimal places")
	ErrDescriptionTooLong         = Validation("description must be at most 50 characters")
	ErrInvalidDescription         = Validation("description must be valid UTF-8")
	ErrBalanceLimitExceeded       = Conflict("destination balance limit exceeded")

	ErrCardNotFound         = NotFound("card not found")
	ErrCardAlreadyBlocked   = Conflict("card already blocked")
	ErrNoPendingBlock       = Conflict("no pending block request")
	ErrCardNotActivatable   = Conflict("card cannot be activated")
	ErrInvalidCardStatus    = Validation("invalid card status")
	ErrNegativeBalance      = Validation("initial balance must not be negative")
	ErrInvalidBalance       = Validation("initial balance must have at most 2 decimal places and fit the balance limit")
	ErrUserNotFound         = NotFound("user not found")
	ErrCannotRemoveAdmin    = Conflict("cannot remove an administrator")
	ErrUsernameTaken        = Conflict("username already taken")
	ErrInvalidCredentials   = Unauthorized("invalid credentials")
	ErrInvalidRefreshToken  = Unauthorized("invalid refresh token")
	ErrUnknownRefreshToken  = Validation("invalid refresh token")
	ErrInvalidUsername      = Validation("username must be 3-30 letters, digits or underscores")
	ErrInvalidPassword      = Validation("password must be 8 to 72 characters")
	ErrInvalidOwnerUsername = Validation("owner username is required")
)
