package errors

// ErrorCode identifies an application error in API responses
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// Request
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1004
	ErrorCode_MISCONFIGURED    ErrorCode = 1005
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1006

	// Pipeline
	ErrorCode_STAGE_FAILED     ErrorCode = 2000
	ErrorCode_STAGE_BUSY       ErrorCode = 2001
	ErrorCode_PIPELINE_PARTIAL ErrorCode = 2002
	ErrorCode_LOCK_FAILED      ErrorCode = 2004

	// Backing stores
	ErrorCode_STORAGE_FAILED       ErrorCode = 3003
	ErrorCode_DB_CONNECTION_FAILED ErrorCode = 4000
	ErrorCode_DB_QUERY_FAILED      ErrorCode = 4001
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:              "HTTP_OK",
	ErrorCode_INTERNAL:             "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:     "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:            "NOT_FOUND",
	ErrorCode_UNAUTHENTICATED:      "UNAUTHENTICATED",
	ErrorCode_MISCONFIGURED:        "MISCONFIGURED",
	ErrorCode_INVALID_PAYLOAD:      "INVALID_PAYLOAD",
	ErrorCode_STAGE_FAILED:         "STAGE_FAILED",
	ErrorCode_STAGE_BUSY:           "STAGE_BUSY",
	ErrorCode_PIPELINE_PARTIAL:     "PIPELINE_PARTIAL",
	ErrorCode_LOCK_FAILED:          "LOCK_FAILED",
	ErrorCode_STORAGE_FAILED:       "STORAGE_FAILED",
	ErrorCode_DB_CONNECTION_FAILED: "DB_CONNECTION_FAILED",
	ErrorCode_DB_QUERY_FAILED:      "DB_QUERY_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the code by name in JSON bodies
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
