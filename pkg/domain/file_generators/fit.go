package file_generators

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
)

// SemicirclesPerDegree converts degrees to FIT semicircles (2^31 / 180).
const SemicirclesPerDegree = 11930464.7111

const caloriesPerKm = 58.3

// GenerateTrackFit encodes a synthesized track as a running activity. Points
// are GCJ-02 and are written back as WGS-84. Records are spread evenly over
// keep starting at start; distanceKm is the reported session distance.
func GenerateTrackFit(points []routine.Point, start time.Time, keep time.Duration, distanceKm float64) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("track must have at least one point")
	}
	if keep < 0 {
		return nil, fmt.Errorf("negative duration %s", keep)
	}

	start = start.UTC()
	end := start.Add(keep)
	elapsedMs := uint32(keep / time.Millisecond)
	totalCm := uint32(math.Round(distanceKm * 100000))

	fit := &proto.FIT{
		Messages: []proto.Message{},
	}

	// 1. FileId message
	fileId := mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(1).
		SetTimeCreated(start)
	fit.Messages = append(fit.Messages, fileId.ToMesg(nil))

	// 2. Records, one per track point
	step := time.Duration(0)
	if len(points) > 1 {
		step = keep / time.Duration(len(points)-1)
	}
	cumulative := 0.0
	for i, p := range points {
		if i > 0 {
			cumulative += routine.Distance(points[i-1], p)
		}
		lat, lon := routine.GCJ02ToWGS84(p.Latitude, p.Longitude)

		record := mesgdef.NewRecord(nil).
			SetTimestamp(start.Add(step * time.Duration(i))).
			SetPositionLat(toSemicircles(lat)).
			SetPositionLong(toSemicircles(lon)).
			SetDistance(uint32(math.Round(cumulative * 100000)))
		fit.Messages = append(fit.Messages, record.ToMesg(nil))
	}

	// 3. Lap and Session summaries
	lap := mesgdef.NewLap(nil).
		SetTimestamp(end).
		SetStartTime(start).
		SetTotalElapsedTime(elapsedMs).
		SetTotalTimerTime(elapsedMs).
		SetTotalDistance(totalCm).
		SetSport(typedef.SportRunning)
	fit.Messages = append(fit.Messages, lap.ToMesg(nil))

	session := mesgdef.NewSession(nil).
		SetTimestamp(end).
		SetStartTime(start).
		SetSport(typedef.SportRunning).
		SetSubSport(typedef.SubSportStreet).
		SetTotalElapsedTime(elapsedMs).
		SetTotalTimerTime(elapsedMs).
		SetTotalDistance(totalCm).
		SetTotalCalories(uint16(caloriesPerKm * distanceKm)).
		SetNumLaps(1)
	fit.Messages = append(fit.Messages, session.ToMesg(nil))

	// 4. Activity message
	activity := mesgdef.NewActivity(nil).
		SetTimestamp(end).
		SetType(typedef.ActivityManual).
		SetTotalTimerTime(elapsedMs).
		SetNumSessions(1)
	fit.Messages = append(fit.Messages, activity.ToMesg(nil))

	var buf bytes.Buffer
	enc := encoder.New(&buf)
	if err := enc.Encode(fit); err != nil {
		return nil, fmt.Errorf("failed to encode FIT file: %w", err)
	}

	return buf.Bytes(), nil
}

func toSemicircles(deg float64) int32 {
	return int32(math.Round(deg * SemicirclesPerDegree))
}
