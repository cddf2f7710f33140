package fit_parser

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
	"github.com/paulmach/orb"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
)

const semicircleConst = 11930464.7111 // 2^31 / 180

// ErrNoPositions is returned when a FIT file has no positioned records.
var ErrNoPositions = errors.New("FIT file has no GPS positions")

// TrackRecord is one positioned record, in WGS-84 degrees.
type TrackRecord struct {
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	// DistanceM is the cumulative distance in metres, or -1 when absent.
	DistanceM float64
}

// Track is the GPS content of a FIT activity.
type Track struct {
	StartTime      time.Time
	Sport          typedef.Sport
	TotalDistanceM float64
	TotalElapsed   time.Duration
	Records        []TrackRecord
}

// ParseTrack decodes every FIT file in data and collects positioned records
// and the first session summary.
func ParseTrack(data []byte) (*Track, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty FIT data")
	}

	fitDec := decoder.New(bytes.NewReader(data))
	track := &Track{Sport: typedef.SportInvalid}
	sawSession := false
	decoded := false

	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIT file: %w", err)
		}
		decoded = true

		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			switch msg.Num {
			case typedef.MesgNumFileId:
				fileId := mesgdef.NewFileId(msg)
				if track.StartTime.IsZero() && !fileId.TimeCreated.IsZero() {
					track.StartTime = fileId.TimeCreated.UTC()
				}

			case typedef.MesgNumRecord:
				if rec, ok := parseRecord(msg); ok {
					track.Records = append(track.Records, rec)
				}

			case typedef.MesgNumSession:
				if sawSession {
					continue
				}
				sawSession = true
				session := mesgdef.NewSession(msg)
				if !session.StartTime.IsZero() {
					track.StartTime = session.StartTime.UTC()
				}
				track.Sport = session.Sport
				track.TotalDistanceM = float64(session.TotalDistance) / 100
				track.TotalElapsed = time.Duration(session.TotalElapsedTime) * time.Millisecond
			}
		}
	}

	if !decoded {
		return nil, fmt.Errorf("no FIT data found")
	}
	return track, nil
}

// Template returns the positions as a route template.
func (t *Track) Template() (routine.Template, error) {
	if len(t.Records) == 0 {
		return nil, ErrNoPositions
	}
	tmpl := make(routine.Template, len(t.Records))
	for i, r := range t.Records {
		tmpl[i] = orb.Point{r.Longitude, r.Latitude}
	}
	return tmpl, nil
}

// ParseTemplate reads a recorded activity as a route template.
func ParseTemplate(data []byte) (routine.Template, error) {
	track, err := ParseTrack(data)
	if err != nil {
		return nil, err
	}
	return track.Template()
}

// parseRecord extracts a positioned record; records without a valid fix or
// timestamp are skipped.
func parseRecord(msg *proto.Message) (TrackRecord, bool) {
	recordMsg := mesgdef.NewRecord(msg)

	if recordMsg.Timestamp.IsZero() {
		return TrackRecord{}, false
	}
	if recordMsg.PositionLat == 0x7FFFFFFF || recordMsg.PositionLong == 0x7FFFFFFF {
		return TrackRecord{}, false
	}

	rec := TrackRecord{
		Timestamp: recordMsg.Timestamp.UTC(),
		Latitude:  float64(recordMsg.PositionLat) / semicircleConst,
		Longitude: float64(recordMsg.PositionLong) / semicircleConst,
		DistanceM: -1,
	}
	if recordMsg.Distance != 0xFFFFFFFF {
		rec.DistanceM = float64(recordMsg.Distance) / 100
	}
	return rec, true
}
