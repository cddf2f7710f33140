package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
	"github.com/yaoshiu/pretty-der6y/pkg/testing/mocks"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantOK     bool
	}{
		{"gs://routes/campus.geojson", "routes", "campus.geojson", true},
		{"gs://routes/nested/dir/loop.geojson", "routes", "nested/dir/loop.geojson", true},
		{"gs://routes", "", "", false},
		{"gs://routes/", "", "", false},
		{"gs:///campus.geojson", "", "", false},
		{"./campus.geojson", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, ok := ParseGCSURI(tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestReadURI_GCS(t *testing.T) {
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			assert.Equal(t, "routes", bucket)
			assert.Equal(t, "campus.geojson", object)
			return []byte(`{"type":"FeatureCollection"}`), nil
		},
	}

	data, err := ReadURI(context.Background(), store, "gs://routes/campus.geojson")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(data))
}

func TestReadURI_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.geojson")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

	data, err := ReadURI(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))

	_, err = ReadURI(context.Background(), nil, filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadURI_Errors(t *testing.T) {
	_, err := ReadURI(context.Background(), nil, "gs://routes/campus.geojson")
	assert.ErrorIs(t, err, ErrNoBlobStore)

	_, err = ReadURI(context.Background(), &mocks.MockBlobStore{}, "gs://routes")
	assert.Error(t, err)
}

func TestReadTemplate(t *testing.T) {
	const route = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
		"geometry":{"type":"LineString","coordinates":[[104.0668,30.5728],[104.0678,30.5728]]}}]}`

	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return []byte(route), nil
		},
	}

	tmpl, err := ReadTemplate(context.Background(), store, "gs://routes/campus.geojson")
	require.NoError(t, err)
	assert.Len(t, tmpl, 2)

	_, err = ReadTemplate(context.Background(), store, "gs://routes/campus.fit")
	assert.Error(t, err)
}

func TestReadTemplate_InvalidGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Point","coordinates":[1,2]}`), 0o600))

	_, err := ReadTemplate(context.Background(), nil, path)
	assert.ErrorIs(t, err, routine.ErrInvalidGeometry)
}
