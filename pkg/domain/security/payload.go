package security

import "github.com/yaoshiu/pretty-der6y/pkg/domain/routine"

// TimeLayout is the local date-time format used by every timestamp field.
const TimeLayout = "2006-01-02 15:04:05"

// UploadRunningInfo is the body of one activity upload. Field order follows
// the mobile client. Oct, SignTime and SignDigital are the signature fields.
type UploadRunningInfo struct {
	GpsMileage                float64         `json:"gpsMileage"`
	EffectivePart             uint8           `json:"effectivePart"`
	SignTime                  string          `json:"signTime"`
	KeepTime                  int64           `json:"keepTime"`
	DeviceType                string          `json:"deviceType"`
	AvePace                   int64           `json:"avePace"`
	AppVersion                string          `json:"appVersion"`
	Oct                       string          `json:"oct"`
	SignPoint                 []routine.Point `json:"signPoint"`
	EndTime                   string          `json:"endTime"`
	LimitationsGoalsSexInfoID string          `json:"limitationsGoalsSexInfoId"`
	SemesterID                string          `json:"semesterId"`
	UneffectiveReason         string          `json:"uneffectiveReason"`
	RunType                   string          `json:"type"`
	PaceNumber                int64           `json:"paceNumber"`
	RoutineLine               []routine.Point `json:"routineLine"`
	SignDigital               string          `json:"signDigital"`
	TotalMileage              float64         `json:"totalMileage"`
	TotalPart                 uint8           `json:"totalPart"`
	Calorie                   int64           `json:"calorie"`
	EffectiveMileage          float64         `json:"effectiveMileage"`
	SystemVersion             string          `json:"systemVersion"`
	PaceRange                 float64         `json:"paceRange"`
	ScoringType               uint8           `json:"scoringType"`
	StartTime                 string          `json:"startTime"`
}

// oct is the abbreviated mirror of UploadRunningInfo that gets encrypted
// into the Oct field. The field order is part of the plaintext.
type oct struct {
	TotalPart         uint8     `json:"tp"`
	EffectivePart     uint8     `json:"ep"`
	KeepTime          int64     `json:"kt"`
	EffectiveMileage  wireFloat `json:"em"`
	RunType           string    `json:"rt"`
	UneffectiveReason string    `json:"uer"`
	SemesterID        string    `json:"xq"`
	DeviceType        string    `json:"dt"`
	PaceRange         wireFloat `json:"bf"`
	PaceNumber        int64     `json:"bs"`
	TotalMileage      wireFloat `json:"zlc"`
	ScoringType       uint8     `json:"jf"`
	EndTime           string    `json:"et"`
	LimitationID      string    `json:"lid"`
	Calorie           int64     `json:"kll"`
	AppVersion        string    `json:"app"`
	AvePace           int64     `json:"ap"`
	GpsMileage        wireFloat `json:"lcs"`
	StartTime         string    `json:"st"`
	SystemVersion     string    `json:"sv"`
}

func newOct(p *UploadRunningInfo) oct {
	return oct{
		TotalPart:         p.TotalPart,
		EffectivePart:     p.EffectivePart,
		KeepTime:          p.KeepTime,
		EffectiveMileage:  wireFloat(p.EffectiveMileage),
		RunType:           p.RunType,
		UneffectiveReason: p.UneffectiveReason,
		SemesterID:        p.SemesterID,
		DeviceType:        p.DeviceType,
		PaceRange:         wireFloat(p.PaceRange),
		PaceNumber:        p.PaceNumber,
		TotalMileage:      wireFloat(p.TotalMileage),
		ScoringType:       p.ScoringType,
		EndTime:           p.EndTime,
		LimitationID:      p.LimitationsGoalsSexInfoID,
		Calorie:           p.Calorie,
		AppVersion:        p.AppVersion,
		AvePace:           p.AvePace,
		GpsMileage:        wireFloat(p.GpsMileage),
		StartTime:         p.StartTime,
		SystemVersion:     p.SystemVersion,
	}
}
