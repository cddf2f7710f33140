package firestore

import (
	"time"

	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Firestore hands integers back as int64 and doubles as float64.
func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getFloat64(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func getTime(m map[string]interface{}, key string) time.Time {
	if t, ok := m[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// --- UploadRecord Converters ---

func UploadToFirestore(u *types.UploadRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"username":     u.Username,
		"date":         u.Date,
		"execution_id": u.ExecutionID,
		"status":       u.Status,
		"route":        u.Route,
		"mileage":      u.Mileage,
		"keep_time":    u.KeepTime,
		"start_time":   u.StartTime,
		"end_time":     u.EndTime,
		"points":       int64(u.Points),
		"sign_digital": u.SignDigital,
		"fit_object":   u.FitObject,
		"created_at":   u.CreatedAt,
	}
}

func FirestoreToUpload(m map[string]interface{}) *types.UploadRecord {
	return &types.UploadRecord{
		ID:          getString(m, "id"),
		Username:    getString(m, "username"),
		Date:        getString(m, "date"),
		ExecutionID: getString(m, "execution_id"),
		Status:      getString(m, "status"),
		Route:       getString(m, "route"),
		Mileage:     getFloat64(m, "mileage"),
		KeepTime:    getInt64(m, "keep_time"),
		StartTime:   getString(m, "start_time"),
		EndTime:     getString(m, "end_time"),
		Points:      int(getInt64(m, "points")),
		SignDigital: getString(m, "sign_digital"),
		FitObject:   getString(m, "fit_object"),
		CreatedAt:   getTime(m, "created_at"),
	}
}
