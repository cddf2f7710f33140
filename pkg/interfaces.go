package shared

import (
	"context"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

// --- Persistence Interfaces ---

type Database interface {
	SetUploadRecord(ctx context.Context, record *types.UploadRecord) error
	// ClaimUploadRecord atomically creates record, or replaces an existing
	// pending record created before staleBefore. It reports whether the claim
	// was taken and returns the record that was already there, if any.
	ClaimUploadRecord(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error)
	DeleteUploadRecord(ctx context.Context, id string) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
