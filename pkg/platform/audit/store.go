package audit

import "context"

// Store persists audit entries. Append assigns the sequence number and must
// observe any transaction carried in ctx so an entry commits atomically with
// the mutation it records.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityKey string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Outbox is implemented by stores that stage entries for asynchronous
// publication to the audit topic.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, seqs []uint64) error
}
