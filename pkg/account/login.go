package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/security"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/auth"
	httputil "github.com/yaoshiu/pretty-der6y/pkg/infrastructure/http"
)

type loginResponse struct {
	Data security.Envelope `json:"data"`
}

type tokenData struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	AccessToken    string `json:"accessToken"`
	SchoolID       string `json:"schoolId"`
}

type semesterResponse struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
}

type versionResponse struct {
	Data struct {
		VersionLabel string `json:"versionLabel"`
	} `json:"data"`
}

type runningLimitRequest struct {
	SemesterID string `json:"semesterId"`
}

type runningLimitResponse struct {
	Data struct {
		DailyMileage              *float64 `json:"dailyMileage"`
		EffectiveMileageEnd       *float64 `json:"effectiveMileageEnd"`
		EffectiveMileageStart     *float64 `json:"effectiveMileageStart"`
		LimitationsGoalsSexInfoID *string  `json:"limitationsGoalsSexInfoId"`
		ScoringType               *uint8   `json:"scoringType"`
		TotalDayMileage           *string  `json:"totalDayMileage"`
		TotalWeekMileage          *string  `json:"totalWeekMileage"`
		WeeklyMileage             *float64 `json:"weeklyMileage"`
	} `json:"data"`
}

// Login authenticates and loads the semester, app version and running
// limits. On failure the previous session, if any, is kept.
func (c *Client) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	c.logger.Info("Get token successful!", "user_id", session.UserID)

	client := c.httpClient(auth.NewTransport(session.AccessToken, webHeaders(c.backend, session.OrganizationID), c.base))

	var semester semesterResponse
	if err := c.do(ctx, client, http.MethodGet, pathSemester, nil, &semester); err != nil {
		return fmt.Errorf("get current semester: %w", err)
	}
	if semester.Data == nil {
		return ErrNoSemester
	}
	session.SemesterID = semester.Data.ID
	c.logger.Info("Get current successful!", "semester_id", session.SemesterID)

	var version versionResponse
	if err := c.do(ctx, client, http.MethodGet, pathVersion, nil, &version); err != nil {
		return fmt.Errorf("get app version: %w", err)
	}
	session.AppVersion = version.Data.VersionLabel
	c.logger.Info("Get version successful!", "version", session.AppVersion)

	var limit runningLimitResponse
	if err := c.do(ctx, client, http.MethodPost, pathRunningLimit, runningLimitRequest{SemesterID: session.SemesterID}, &limit); err != nil {
		return fmt.Errorf("get running limit: %w", err)
	}
	limits, err := limit.limits()
	if err != nil {
		return err
	}
	c.logger.Info("Get running limitation successful!",
		"daily", limits.DailyMileage, "day", limits.DayMileage,
		"weekly", limits.WeeklyMileage, "week", limits.WeekMileage)

	c.session = session
	c.limits = limits
	return nil
}

func (c *Client) authenticate(ctx context.Context, username, password string) (*Session, error) {
	_, envelope, err := security.SignLoginRequest(username, password, c.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("sign login request: %w", err)
	}
	c.logger.Debug("Login request", "username", username, "t", envelope.T)

	client := c.httpClient(&auth.HeaderTransport{Headers: webHeaders(c.backend, ""), Base: c.base})

	var resp loginResponse
	if err := c.do(ctx, client, http.MethodPost, pathLogin, envelope, &resp); err != nil {
		if httputil.IsStatus(err, http.StatusBadRequest) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	plain, err := resp.Data.Open()
	if err != nil {
		return nil, fmt.Errorf("open login response: %w", err)
	}

	var token tokenData
	if err := json.Unmarshal([]byte(plain), &token); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	return &Session{
		UserID:         token.ID,
		SchoolID:       token.SchoolID,
		OrganizationID: token.OrganizationID,
		AccessToken:    token.AccessToken,
	}, nil
}

func (r runningLimitResponse) limits() (*Limits, error) {
	d := r.Data
	if d.DailyMileage == nil || d.EffectiveMileageEnd == nil || d.EffectiveMileageStart == nil ||
		d.LimitationsGoalsSexInfoID == nil || d.ScoringType == nil || d.TotalDayMileage == nil ||
		d.TotalWeekMileage == nil || d.WeeklyMileage == nil {
		return nil, ErrSemesterNotStarted
	}

	day, err := strconv.ParseFloat(*d.TotalDayMileage, 64)
	if err != nil {
		return nil, fmt.Errorf("parse totalDayMileage %q: %w", *d.TotalDayMileage, err)
	}
	week, err := strconv.ParseFloat(*d.TotalWeekMileage, 64)
	if err != nil {
		return nil, fmt.Errorf("parse totalWeekMileage %q: %w", *d.TotalWeekMileage, err)
	}

	return &Limits{
		DailyMileage:   *d.DailyMileage,
		DayMileage:     day,
		WeeklyMileage:  *d.WeeklyMileage,
		WeekMileage:    week,
		EffectiveStart: *d.EffectiveMileageStart,
		EffectiveEnd:   *d.EffectiveMileageEnd,
		LimitationID:   *d.LimitationsGoalsSexInfoID,
		ScoringType:    *d.ScoringType,
	}, nil
}
