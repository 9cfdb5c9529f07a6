package tracker

import "errors"

// ErrNotFound is returned when the remote directory has no identity, guild
// or member for the requested ids. A miss is a definitive answer from the
// directory, not a transient condition; callers must not retry.
var ErrNotFound = errors.New("not found in directory")
