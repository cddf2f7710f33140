package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storage "github.com/yaoshiu/pretty-der6y/pkg/storage/firestore"
	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		storage: storage.NewClient(client),
	}
}

func (a *FirestoreAdapter) SetUploadRecord(ctx context.Context, record *types.UploadRecord) error {
	if err := a.storage.Uploads().Doc(record.ID).Set(ctx, record); err != nil {
		return fmt.Errorf("set upload record %s: %w", record.ID, err)
	}
	return nil
}

// ClaimUploadRecord creates record, or replaces a stale pending record, in
// one transaction so concurrent executions cannot both win.
func (a *FirestoreAdapter) ClaimUploadRecord(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error) {
	doc := a.storage.Uploads().Doc(record.ID)

	var claimed bool
	var existing *types.UploadRecord
	err := a.storage.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// The function may rerun on contention.
		claimed, existing = false, nil

		prev, err := doc.GetTx(tx)
		if status.Code(err) == codes.NotFound {
			claimed = true
			return doc.CreateTx(tx, record)
		}
		if err != nil {
			return err
		}

		existing = prev
		if !prev.StaleClaim(staleBefore) {
			return nil
		}
		claimed = true
		return doc.SetTx(tx, record)
	})
	if err != nil {
		return false, nil, fmt.Errorf("claim upload record %s: %w", record.ID, err)
	}
	return claimed, existing, nil
}

func (a *FirestoreAdapter) DeleteUploadRecord(ctx context.Context, id string) error {
	if err := a.storage.Uploads().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete upload record %s: %w", id, err)
	}
	return nil
}
