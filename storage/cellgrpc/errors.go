package cellgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ratewire/storage"
)

// The wire contract: each storage sentinel rides a fixed status code, and
// both directions of the mapping live here so they cannot drift apart.
var sentinelByCode = map[codes.Code]error{
	codes.NotFound:        storage.ErrNotFound,
	codes.InvalidArgument: storage.ErrInvalidCID,
	codes.DataLoss:        storage.ErrCIDMismatch,
}

// fromStatus recovers the storage sentinel a server-side error stands for,
// so errors.Is works the same against a remote CAS as a local one. Unknown
// codes fall back to message matching before giving up.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if sentinel, known := sentinelByCode[st.Code()]; known {
		return sentinel
	}
	for _, sentinel := range sentinelByCode {
		if st.Message() == sentinel.Error() {
			return sentinel
		}
	}
	return err
}

// toStatus maps a backend error onto the wire contract. Anything that is not
// a known sentinel is reported as Internal with its message intact.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
