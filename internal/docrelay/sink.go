package docrelay

import "context"

// DocumentSink accepts a staged document for delivery. Implementations
// wrap auth and transport failures in ErrSinkUnavailable; the caller
// treats any error as "leave the file staged and retry next cycle".
type DocumentSink interface {
	Deliver(ctx context.Context, filename string, content []byte) error
}
