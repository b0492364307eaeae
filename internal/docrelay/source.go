package docrelay

import "context"

// DocumentSource lists candidate document ids within the source's recency
// window and downloads document content. Implementations wrap transport,
// auth, and HTTP failures in ErrSourceUnavailable.
type DocumentSource interface {
	ListDocumentIDs(ctx context.Context) ([]int64, error)
	DownloadDocument(ctx context.Context, id int64) ([]byte, error)
}
