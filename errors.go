package xmlsig

import (
	"github.com/philiph/xmlsig/internal/core/domain"
)

// Re-export error types from the domain package so callers only need the
// root import.
type ErrorCode = domain.ErrorCode
type SecurityError = domain.SecurityError

// Re-export error code constants
const (
	ErrCodeValidation       = domain.ErrCodeValidation
	ErrCodeWrongElement     = domain.ErrCodeWrongElement
	ErrCodeMarshal          = domain.ErrCodeMarshal
	ErrCodeDecoding         = domain.ErrCodeDecoding
	ErrCodePrefixConflict   = domain.ErrCodePrefixConflict
	ErrCodeNamespaceContext = domain.ErrCodeNamespaceContext
	ErrCodeKeyNotFound      = domain.ErrCodeKeyNotFound
)

// Re-export error constructors
var (
	ValidationError       = domain.ValidationError
	WrongElementError     = domain.WrongElementError
	MarshalError          = domain.MarshalError
	DecodingError         = domain.DecodingError
	PrefixConflictError   = domain.PrefixConflictError
	NamespaceContextError = domain.NamespaceContextError
	KeyNotFoundError      = domain.KeyNotFoundError
)
