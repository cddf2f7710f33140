package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

type ToFirestoreFunc[T any] func(*T) map[string]interface{}
type FromFirestoreFunc[T any] func(map[string]interface{}) *T

type Collection[T any] struct {
	Ref           *firestore.CollectionRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.Doc(id),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

type DocumentRef[T any] struct {
	Ref           *firestore.DocumentRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

// Set overwrites the whole document.
func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	_, err := d.Ref.Set(ctx, d.ToFirestore(data))
	return err
}

func (d *DocumentRef[T]) Delete(ctx context.Context) error {
	_, err := d.Ref.Delete(ctx)
	return err
}

// --- Transaction variants ---

// GetTx reads the document inside tx. A missing document yields a
// codes.NotFound error.
func (d *DocumentRef[T]) GetTx(tx *firestore.Transaction) (*T, error) {
	snap, err := tx.Get(d.Ref)
	if err != nil {
		return nil, err
	}
	return d.FromFirestore(snap.Data()), nil
}

func (d *DocumentRef[T]) CreateTx(tx *firestore.Transaction, data *T) error {
	return tx.Create(d.Ref, d.ToFirestore(data))
}

func (d *DocumentRef[T]) SetTx(tx *firestore.Transaction, data *T) error {
	return tx.Set(d.Ref, d.ToFirestore(data))
}
