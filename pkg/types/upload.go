package types

import (
	"fmt"
	"time"
)

// DateLayout keys upload records by local calendar day.
const DateLayout = "2006-01-02"

// Upload record states. A pending record claims the day while an upload
// is in flight.
const (
	UploadStatusPending  = "pending"
	UploadStatusUploaded = "uploaded"
)

// UploadJob is the scheduled upload request carried in a Pub/Sub message.
// Empty fields fall back to the service configuration.
type UploadJob struct {
	Username string  `json:"username,omitempty"`
	Mileage  float64 `json:"mileage,omitempty"`
	Route    string  `json:"route,omitempty"`
	// EndTime is "YYYY-MM-DD HH:MM:SS" in local time; empty means now.
	EndTime string `json:"end_time,omitempty"`
}

// UploadRecord is the persisted outcome of one upload.
type UploadRecord struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Date        string  `json:"date"`
	ExecutionID string  `json:"execution_id"`
	Status      string  `json:"status"`
	Route       string  `json:"route"`
	Mileage     float64 `json:"mileage"`
	KeepTime    int64   `json:"keep_time"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Points      int     `json:"points"`
	SignDigital string  `json:"sign_digital"`
	// FitObject is the gs:// location of the archived FIT track, if any.
	FitObject string    `json:"fit_object,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StaleClaim reports whether r is a pending claim created before the cutoff,
// left behind by an execution that never finished.
func (r *UploadRecord) StaleClaim(before time.Time) bool {
	return r.Status == UploadStatusPending && r.CreatedAt.Before(before)
}

// UploadRecordID is the document id of the record for username on day.
func UploadRecordID(username string, day time.Time) string {
	return fmt.Sprintf("%s_%s", username, day.Format(DateLayout))
}
