package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	shared "github.com/yaoshiu/pretty-der6y/pkg"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/fit_parser"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
)

const gcsScheme = "gs://"

// ErrNoBlobStore is returned for gs:// locations when no store is configured.
var ErrNoBlobStore = errors.New("no blob store configured")

// ParseGCSURI splits gs://bucket/object. ok is false for anything else.
func ParseGCSURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, gcsScheme)
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// ReadURI reads a gs:// object through store, or a local file for any other
// location. store may be nil when only local files are used.
func ReadURI(ctx context.Context, store shared.BlobStore, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, gcsScheme) {
		bucket, object, ok := ParseGCSURI(uri)
		if !ok {
			return nil, fmt.Errorf("malformed GCS location %q", uri)
		}
		if store == nil {
			return nil, fmt.Errorf("read %s: %w", uri, ErrNoBlobStore)
		}
		return store.Read(ctx, bucket, object)
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

// ReadTemplate loads a route template from uri. Files ending in .fit are read
// as recorded activities, anything else as GeoJSON.
func ReadTemplate(ctx context.Context, store shared.BlobStore, uri string) (routine.Template, error) {
	data, err := ReadURI(ctx, store, uri)
	if err != nil {
		return nil, err
	}

	var tmpl routine.Template
	if strings.HasSuffix(strings.ToLower(uri), ".fit") {
		tmpl, err = fit_parser.ParseTemplate(data)
	} else {
		tmpl, err = routine.ParseTemplate(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse route %s: %w", uri, err)
	}
	return tmpl, nil
}
