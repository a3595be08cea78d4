package ref

// SentinelError is an error.
type SentinelError string

const (
	// ErrClosed indicates use of a closed handle.
	ErrClosed = SentinelError("use of closed handle")

	// ErrReleased indicates use of a slot whose reference count dropped to zero.
	ErrReleased = SentinelError("use of released slot")

	// ErrNilValue indicates an attempt to own a nil value or to release with a nil function.
	ErrNilValue = SentinelError("nil value")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
