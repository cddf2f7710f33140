package scheduleduploader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/go-chi/chi/v5"

	shared "github.com/yaoshiu/pretty-der6y/pkg"
	"github.com/yaoshiu/pretty-der6y/pkg/account"
	"github.com/yaoshiu/pretty-der6y/pkg/bootstrap"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/security"
	"github.com/yaoshiu/pretty-der6y/pkg/framework"
	"github.com/yaoshiu/pretty-der6y/pkg/testing/mocks"
	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

const routeGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"LineString","coordinates":[[104.0668,30.5728],[104.0678,30.5728],[104.0678,30.5738],[104.0668,30.5738]]}}]}`

// backend answers just enough of the running API for one login and upload.
type backend struct {
	failLogin bool

	mu      sync.Mutex
	logins  int
	uploads []security.UploadRunningInfo
}

func (b *backend) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/authorization/user/v2/manage/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logins++
		b.mu.Unlock()
		if b.failLogin {
			http.Error(w, `{"message":"bad password"}`, http.StatusBadRequest)
			return
		}

		const t = int64(1726836594123)
		body := `{"id":"1234567890abcdef","organizationId":"org-1","accessToken":"tok","schoolId":"fedcba0987654321"}`
		pyd, err := security.EncodeNS(body, t)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data, _ := json.Marshal(security.Envelope{T: t, Pyd: pyd})
		reply(w, data)
	})
	r.Get("/education/semester/getCurrent", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, json.RawMessage(`{"id":"sem-1"}`))
	})
	r.Get("/authorization/mobileApp/getLastVersion", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, json.RawMessage(`{"versionLabel":"3.10.0"}`))
	})
	r.Post("/running/app/getRunningLimit", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, json.RawMessage(`{"dailyMileage":5,"effectiveMileageEnd":5,"effectiveMileageStart":1,
			"limitationsGoalsSexInfoId":"lim-1","scoringType":1,"totalDayMileage":"0","totalWeekMileage":"0","weeklyMileage":20}`))
	})
	r.Post("/running/*", func(w http.ResponseWriter, r *http.Request) {
		var p security.UploadRunningInfo
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.uploads = append(b.uploads, p)
		b.mu.Unlock()
		reply(w, json.RawMessage(`true`))
	})
	return r
}

func reply(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "data": data})
}

func newFrameworkContext(db *mocks.MockDatabase, pub *mocks.MockPublisher, store *mocks.MockBlobStore) *framework.FrameworkContext {
	return &framework.FrameworkContext{
		Service: &bootstrap.Service{
			DB:    db,
			Pub:   pub,
			Store: store,
			Config: &bootstrap.Config{
				Username:    "20240001",
				Password:    "secret",
				Mileage:     3,
				Route:       "loop.geojson",
				RouteBucket: "routes",
			},
		},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ExecutionID: "exec-1",
	}
}

func jobEvent(t *testing.T, job types.UploadJob) event.Event {
	t.Helper()

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	var msg types.PubSubMessage
	msg.Message.Data = data

	e := event.New()
	e.SetID("msg-1")
	e.SetType(framework.PubSubEventType)
	e.SetSource("//pubsub.googleapis.com/projects/p/topics/" + shared.TopicScheduledUpload)
	if err := e.SetData(event.ApplicationJSON, msg); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	return e
}

func TestScheduledUpload(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	var claimed, saved types.UploadRecord
	var readObject, wroteObject string
	var archived []byte
	db := &mocks.MockDatabase{
		ClaimUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error) {
			claimed = *record
			if got := record.CreatedAt.Sub(staleBefore); got != staleClaimAfter {
				t.Errorf("stale cutoff %v before creation, want %v", got, staleClaimAfter)
			}
			return true, nil, nil
		},
		SetUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord) error {
			saved = *record
			return nil
		},
	}
	pub := &mocks.MockPublisher{}
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			readObject = bucket + "/" + object
			return []byte(routeGeoJSON), nil
		},
		WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
			wroteObject = bucket + "/" + object
			archived = data
			return nil
		},
	}
	fwCtx := newFrameworkContext(db, pub, store)

	e := jobEvent(t, types.UploadJob{EndTime: "2024-09-20 20:49:54"})
	res, err := uploadHandler(account.WithBaseURL(srv.URL))(context.Background(), e, fwCtx)
	if err != nil {
		t.Fatalf("uploadHandler: %v", err)
	}

	out := res.(map[string]interface{})
	if out["status"] != "uploaded" {
		t.Errorf("status = %v, want uploaded", out["status"])
	}
	if readObject != "routes/loop.geojson" {
		t.Errorf("read %q, want routes/loop.geojson", readObject)
	}
	if b.logins != 1 || len(b.uploads) != 1 {
		t.Fatalf("logins=%d uploads=%d, want 1 and 1", b.logins, len(b.uploads))
	}
	if b.uploads[0].EndTime != "2024-09-20 20:49:54" {
		t.Errorf("EndTime = %q", b.uploads[0].EndTime)
	}

	if claimed.ID != "20240001_2024-09-20" || claimed.Status != types.UploadStatusPending {
		t.Errorf("claim = %+v", claimed)
	}
	if saved.ID != claimed.ID || saved.ExecutionID != "exec-1" || saved.Status != types.UploadStatusUploaded {
		t.Errorf("record = %+v", saved)
	}
	if wroteObject != "routes/uploads/20240001_2024-09-20.fit" || len(archived) == 0 {
		t.Errorf("archived %d bytes to %q", len(archived), wroteObject)
	}
	if saved.FitObject != "gs://routes/uploads/20240001_2024-09-20.fit" {
		t.Errorf("FitObject = %q", saved.FitObject)
	}
	if saved.SignDigital != b.uploads[0].SignDigital {
		t.Errorf("SignDigital = %q, want %q", saved.SignDigital, b.uploads[0].SignDigital)
	}
	if saved.Mileage <= 0 || saved.Mileage > 3 {
		t.Errorf("Mileage = %v, want (0, 3]", saved.Mileage)
	}

	if len(pub.Published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.Published))
	}
	ev := pub.Published[0]
	if ev.Type() != shared.EventUploadCompleted || ev.Subject() != "20240001" {
		t.Errorf("event type=%q subject=%q", ev.Type(), ev.Subject())
	}
}

func TestScheduledUpload_AlreadyUploaded(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	var lookedUp string
	db := &mocks.MockDatabase{
		ClaimUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error) {
			lookedUp = record.ID
			return false, &types.UploadRecord{ID: record.ID, ExecutionID: "earlier", Status: types.UploadStatusUploaded}, nil
		},
	}
	pub := &mocks.MockPublisher{}
	fwCtx := newFrameworkContext(db, pub, &mocks.MockBlobStore{})

	e := jobEvent(t, types.UploadJob{Username: "20249999", EndTime: "2024-09-20 08:00:00"})
	res, err := uploadHandler(account.WithBaseURL(srv.URL))(context.Background(), e, fwCtx)
	if err != nil {
		t.Fatalf("uploadHandler: %v", err)
	}

	if out := res.(map[string]interface{}); out["status"] != "skipped" {
		t.Errorf("status = %v, want skipped", out["status"])
	}
	if lookedUp != "20249999_2024-09-20" {
		t.Errorf("looked up %q", lookedUp)
	}
	if b.logins != 0 || len(pub.Published) != 0 {
		t.Errorf("logins=%d published=%d, want none", b.logins, len(pub.Published))
	}
}

func TestScheduledUpload_TakesOverStaleClaim(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	var sets []string
	db := &mocks.MockDatabase{
		ClaimUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error) {
			return true, &types.UploadRecord{
				ID:          record.ID,
				ExecutionID: "crashed",
				Status:      types.UploadStatusPending,
				CreatedAt:   time.Now().Add(-2 * time.Hour),
			}, nil
		},
		SetUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord) error {
			sets = append(sets, record.Status)
			return nil
		},
	}
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return []byte(routeGeoJSON), nil
		},
	}
	fwCtx := newFrameworkContext(db, &mocks.MockPublisher{}, store)

	res, err := uploadHandler(account.WithBaseURL(srv.URL))(context.Background(), jobEvent(t, types.UploadJob{}), fwCtx)
	if err != nil {
		t.Fatalf("uploadHandler: %v", err)
	}
	if out := res.(map[string]interface{}); out["status"] != "uploaded" {
		t.Errorf("status = %v, want uploaded", out["status"])
	}
	if len(sets) != 1 || sets[0] != types.UploadStatusUploaded {
		t.Errorf("record writes = %v, want [uploaded]", sets)
	}
}

func TestScheduledUpload_ReleasesClaimOnFailure(t *testing.T) {
	b := &backend{failLogin: true}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	var released string
	db := &mocks.MockDatabase{
		DeleteUploadRecordFunc: func(ctx context.Context, id string) error {
			released = id
			return nil
		},
		SetUploadRecordFunc: func(ctx context.Context, record *types.UploadRecord) error {
			t.Error("record written after a failed upload")
			return nil
		},
	}
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return []byte(routeGeoJSON), nil
		},
	}
	pub := &mocks.MockPublisher{}
	fwCtx := newFrameworkContext(db, pub, store)

	e := jobEvent(t, types.UploadJob{EndTime: "2024-09-20 20:49:54"})
	_, err := uploadHandler(account.WithBaseURL(srv.URL))(context.Background(), e, fwCtx)
	if !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if released != "20240001_2024-09-20" {
		t.Errorf("released %q", released)
	}
	if len(pub.Published) != 0 {
		t.Errorf("published %d events after failure", len(pub.Published))
	}
}

func TestScheduledUpload_PublishFailureIsNotFatal(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			return "", errors.New("pubsub down")
		},
	}
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return []byte(routeGeoJSON), nil
		},
	}
	fwCtx := newFrameworkContext(&mocks.MockDatabase{}, pub, store)

	_, err := uploadHandler(account.WithBaseURL(srv.URL))(context.Background(), jobEvent(t, types.UploadJob{}), fwCtx)
	if err != nil {
		t.Fatalf("uploadHandler: %v", err)
	}
	if len(b.uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(b.uploads))
	}
}

func TestResolveJob(t *testing.T) {
	base := bootstrap.Config{Username: "u", Password: "p", Mileage: 5, Route: "a.geojson", RouteBucket: "bkt"}

	tests := []struct {
		name    string
		data    string
		mutate  func(*bootstrap.Config)
		want    func(*testing.T, *job)
		wantErr string
	}{
		{
			name: "defaults",
			want: func(t *testing.T, j *job) {
				if j.username != "u" || j.mileage != 5 || j.route != "gs://bkt/a.geojson" {
					t.Errorf("job = %+v", j)
				}
			},
		},
		{
			name: "overrides",
			data: `{"username":"v","mileage":2.5,"route":"/tmp/x.geojson"}`,
			want: func(t *testing.T, j *job) {
				if j.username != "v" || j.mileage != 2.5 || j.route != "/tmp/x.geojson" {
					t.Errorf("job = %+v", j)
				}
			},
		},
		{
			name: "gs uri kept",
			data: `{"route":"gs://other/r.fit"}`,
			want: func(t *testing.T, j *job) {
				if j.route != "gs://other/r.fit" {
					t.Errorf("route = %q", j.route)
				}
			},
		},
		{name: "bad json", data: `{`, wantErr: "decode upload job"},
		{name: "bad end time", data: `{"end_time":"yesterday"}`, wantErr: "invalid end_time"},
		{name: "slash in username", data: `{"username":"a/b"}`, wantErr: "invalid username"},
		{name: "no password", mutate: func(c *bootstrap.Config) { c.Password = "" }, wantErr: "missing credentials"},
		{name: "no route", mutate: func(c *bootstrap.Config) { c.Route = "" }, wantErr: "missing route"},
		{name: "no mileage", mutate: func(c *bootstrap.Config) { c.Mileage = 0 }, wantErr: "mileage must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			j, err := resolveJob([]byte(tt.data), &cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveJob: %v", err)
			}
			tt.want(t, j)
		})
	}
}
