package cache

// SentinelError is an error.
type SentinelError string

const (
	// ErrInvalidHandle indicates nil or closed handle passed to cache.
	ErrInvalidHandle = SentinelError("invalid handle")

	// ErrNegativeSize indicates value descriptor returned negative size.
	ErrNegativeSize = SentinelError("negative value size")

	// ErrInvalidParams indicates cache parameters that can not be applied.
	ErrInvalidParams = SentinelError("invalid cache params")

	// ErrNothingToTrim indicates no trimmables were registered in Trimmer.
	ErrNothingToTrim = SentinelError("nothing to trim")

	// ErrAlreadyTrimmed indicates recent trim.
	ErrAlreadyTrimmed = SentinelError("already trimmed")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
