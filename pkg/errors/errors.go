package errors

import "errors"

var (
	// ErrUnknownParticipant is returned when a message or event references
	// an identity that is not present in the expected registry.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrUnknownMessageKind is returned when a message kind is not recognized.
	ErrUnknownMessageKind = errors.New("unknown message kind")
	// ErrAuthFailed is returned when credential extraction fails.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a client's outbound buffer is full.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrLinkDown is returned when the coordination-service link is not connected.
	ErrLinkDown = errors.New("coordination link down")
	// ErrInvalidRole is returned when a role is outside the closed set.
	ErrInvalidRole = errors.New("invalid role")
)

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.New(msg + ": " + err.Error())
}
