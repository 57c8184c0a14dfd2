package rollout

import "errors"

// Predefined errors for the rollout package.
var (
	// ErrInvalidArgument indicates a caller-supplied value cannot be encoded,
	// e.g. a history operation name that contains whitespace.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedRecord indicates a persisted flag or history record could not be decoded.
	ErrMalformedRecord = errors.New("malformed rollout record")

	// ErrUnknownFormat indicates an unrecognized storage format name.
	ErrUnknownFormat = errors.New("unknown flag storage format")

	// ErrNilStore indicates the engine was constructed without a store.
	ErrNilStore = errors.New("rollout store cannot be nil")
)
