package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument    = 1000
	ErrCodeInvalidJSON        = 1001
	ErrCodeRequestTooLarge    = 1002
	ErrCodeInvalidQuery       = 1003
	ErrCodeInvalidID          = 1004
	ErrCodeMissingRequired    = 1005
	ErrCodeInvalidFileFormat  = 1006
	ErrCodeFileTooLarge       = 1007
	ErrCodeChangeNoteRequired = 1008

	// Domain state (2xxx)
	ErrCodeDocumentNotFound     = 2001
	ErrCodeRevisionNotFound     = 2002
	ErrCodeItemNotFound         = 2003
	ErrCodeSectionNotFound      = 2004
	ErrCodeProjectNotFound      = 2005
	ErrCodeTechDocumentNotFound = 2006
	ErrCodeUserNotFound         = 2007
	ErrCodeNotificationNotFound = 2008
	ErrCodeDuplicatePartNumber  = 2101
	ErrCodeConflict             = 2102
	ErrCodeRevisionLimit        = 2103

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeDocumentNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeFileTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
