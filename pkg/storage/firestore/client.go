package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	shared "github.com/yaoshiu/pretty-der6y/pkg"
	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

// RunTransaction runs f in a Firestore transaction, retrying on contention.
func (c *Client) RunTransaction(ctx context.Context, f func(context.Context, *firestore.Transaction) error) error {
	return c.fs.RunTransaction(ctx, f)
}

// Uploads is a top-level collection: uploads/{username}_{date}
func (c *Client) Uploads() *Collection[types.UploadRecord] {
	return &Collection[types.UploadRecord]{
		Ref:           c.fs.Collection(shared.CollectionUploads),
		ToFirestore:   UploadToFirestore,
		FromFirestore: FirestoreToUpload,
	}
}
