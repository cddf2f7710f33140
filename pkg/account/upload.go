package account

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/security"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/auth"
)

const (
	secondsPerKm     = 360.0
	caloriePerKm     = 58.3
	paceRange        = 0.6
	startTimeLeadSec = 8

	deviceType    = "iPhone 13 Pro"
	systemVersion = "16.0.2"
	runType       = "自由跑"
)

// Run holds the figures of one synthetic activity.
type Run struct {
	Mileage    float64
	KeepTime   int64
	Calorie    int64
	AvePace    int64
	PaceNumber int64
	Start      time.Time
	End        time.Time
	Digest     string
}

// UploadResult is a completed upload.
type UploadResult struct {
	Run      Run
	Payload  *security.UploadRunningInfo
	Response json.RawMessage
}

// Clamp caps mileage at the remaining daily and weekly allowance and the
// effective maximum. It fails when the result is below the effective minimum.
func (l Limits) Clamp(mileage float64) (float64, error) {
	m := math.Min(mileage, l.DailyMileage-l.DayMileage)
	m = math.Min(m, l.WeeklyMileage-l.WeekMileage)
	m = math.Min(m, l.EffectiveEnd)
	if m < l.EffectiveStart {
		return 0, fmt.Errorf("%w: %.3f km < %.3f km", ErrMileageTooLow, m, l.EffectiveStart)
	}
	return m, nil
}

// PlanRun jitters mileage down by 1 to 20 m and derives the duration, pace,
// calorie and digest figures of a run ending at end.
func PlanRun(mileage float64, end time.Time, rng *rand.Rand) Run {
	m := mileage - 0.02 + rng.Float64()*0.019
	keep := int64(m*secondsPerKm) + rng.Int64N(30) - 15

	end = end.Local()
	start := end.Add(-time.Duration(keep+startTimeLeadSec) * time.Second)

	r := Run{
		Mileage:    m,
		KeepTime:   keep,
		Calorie:    int64(caloriePerKm * m),
		AvePace:    int64(float64(keep)/m) * 1000,
		PaceNumber: int64(m * 1000 / paceRange / 2),
		Start:      start,
		End:        end,
	}
	r.Digest = security.UploadDigest(r.Mileage, r.Start.Format(security.TimeLayout), r.Calorie, r.AvePace, r.KeepTime, r.PaceNumber)
	return r
}

// Payload builds the unsigned upload body for r over track. SignUploadPayload
// fills the digest and signature fields.
func (r Run) Payload(track []routine.Point, s Session, l Limits) *security.UploadRunningInfo {
	return &security.UploadRunningInfo{
		AppVersion:                s.AppVersion,
		AvePace:                   r.AvePace,
		Calorie:                   r.Calorie,
		DeviceType:                deviceType,
		EffectiveMileage:          r.Mileage,
		EffectivePart:             1,
		EndTime:                   r.End.Format(security.TimeLayout),
		GpsMileage:                r.Mileage,
		KeepTime:                  r.KeepTime,
		LimitationsGoalsSexInfoID: l.LimitationID,
		PaceNumber:                r.PaceNumber,
		PaceRange:                 paceRange,
		RoutineLine:               track,
		ScoringType:               l.ScoringType,
		SemesterID:                s.SemesterID,
		SignPoint:                 []routine.Point{},
		StartTime:                 r.Start.Format(security.TimeLayout),
		SystemVersion:             systemVersion,
		TotalMileage:              r.Mileage,
		TotalPart:                 1,
		RunType:                   runType,
	}
}

// Upload synthesizes a run of about mileage km over route ending at end,
// signs it and submits it.
func (c *Client) Upload(ctx context.Context, route routine.Template, mileage float64, end time.Time) (*UploadResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.limits == nil {
		return nil, ErrNotLoggedIn
	}
	s, l := *c.session, *c.limits

	m, err := l.Clamp(mileage)
	if err != nil {
		return nil, err
	}

	run := PlanRun(m, end, c.rng)
	track, err := routine.Synthesize(route, run.Mileage, c.rng)
	if err != nil {
		return nil, fmt.Errorf("synthesize route: %w", err)
	}

	payload := run.Payload(track, s, l)
	if err := security.SignUploadPayload(payload, s.UserID, s.SchoolID); err != nil {
		return nil, fmt.Errorf("sign upload: %w", err)
	}

	c.logger.Debug("Upload running",
		"mileage", run.Mileage, "keep_time", run.KeepTime,
		"start", payload.StartTime, "end", payload.EndTime, "points", len(track))

	client := c.httpClient(auth.NewTransport(s.AccessToken, appHeaders(c.backend, fmt.Sprintf(appUserAgent, s.AppVersion)), c.base))

	var resp json.RawMessage
	if err := c.do(ctx, client, http.MethodPost, pathUpload, payload, &resp); err != nil {
		return nil, fmt.Errorf("upload running: %w", err)
	}
	c.logger.Info("Upload running successful!", "mileage", run.Mileage)

	return &UploadResult{Run: run, Payload: payload, Response: resp}, nil
}
