package ratewire

import "context"

// Signer produces signatures over payload digests. It is the only
// collaborator that may block: implementations are free to call out to a
// remote signing service, and BuildChain passes its context through
// unchanged. Timeout and cancellation policy belong to the caller.
type Signer interface {
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}
