package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

func TestUploadConverters(t *testing.T) {
	created := time.Date(2024, 9, 20, 13, 0, 7, 0, time.UTC)
	rec := &types.UploadRecord{
		ID:          "20240001_2024-09-20",
		Username:    "20240001",
		Date:        "2024-09-20",
		ExecutionID: "exec-1",
		Status:      types.UploadStatusUploaded,
		Route:       "gs://routes/campus.geojson",
		Mileage:     4.987,
		KeepTime:    1790,
		StartTime:   "2024-09-20 20:30:02",
		EndTime:     "2024-09-20 21:00:00",
		Points:      120,
		SignDigital: "0d9769667cccfa5ffcf6ecf0c389a177b34cef97",
		FitObject:   "gs://routes/uploads/20240001_2024-09-20.fit",
		CreatedAt:   created,
	}

	m := UploadToFirestore(rec)
	assert.Equal(t, int64(1790), m["keep_time"])
	assert.Equal(t, int64(120), m["points"])

	assert.Equal(t, rec, FirestoreToUpload(m))
}

func TestFirestoreToUpload_LooseTypes(t *testing.T) {
	// Documents written by hand in the console store whole numbers as int64.
	got := FirestoreToUpload(map[string]interface{}{
		"username":  "20240001",
		"mileage":   int64(5),
		"keep_time": float64(1800),
		"points":    "not a number",
	})

	assert.Equal(t, "20240001", got.Username)
	assert.Equal(t, 5.0, got.Mileage)
	assert.Equal(t, int64(1800), got.KeepTime)
	assert.Equal(t, 0, got.Points)
	assert.True(t, got.CreatedAt.IsZero())
}
