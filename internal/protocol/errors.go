package protocol

import "errors"

var (
	// ErrMalformedCommand is returned when a command line has no type, or its
	// payload is not a single JSON object.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrNotAuthenticated is returned when a non-login command is encoded
	// before the session holds an active credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotUTF8 is returned when an inbound frame is not valid UTF-8.
	ErrNotUTF8 = errors.New("frame is not valid UTF-8")

	// ErrMalformedJSON is returned when an inbound frame is not JSON.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrMalformedSnapshot is returned when an inbound frame is JSON but not
	// a snapshot envelope.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// CommandFormat is the expected shape of a user-typed command line.
const CommandFormat = "<Type> <JSON payload>"
