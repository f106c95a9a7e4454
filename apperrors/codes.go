package apperrors

// ErrorCode identifies a class of failure in API responses.
type ErrorCode string

const (
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	CodeAuthFailed       ErrorCode = "AUTH_FAILED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeStoreFailure     ErrorCode = "STORE_FAILURE"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
)
