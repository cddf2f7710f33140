package scheduleduploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/yaoshiu/pretty-der6y/pkg"
	"github.com/yaoshiu/pretty-der6y/pkg/account"
	"github.com/yaoshiu/pretty-der6y/pkg/bootstrap"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/file_generators"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/security"
	"github.com/yaoshiu/pretty-der6y/pkg/framework"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/pubsub"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/storage"
	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

// archivePrefix is the object prefix for archived tracks in the route bucket.
const archivePrefix = "uploads"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ScheduledUpload", ScheduledUpload)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// ScheduledUpload is the entry point
func ScheduledUpload(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("scheduled-uploader", svc, uploadHandler())(ctx, e)
}

// job is an UploadJob with configuration defaults applied.
type job struct {
	username string
	password string
	mileage  float64
	route    string
	end      time.Time
}

func resolveJob(data []byte, cfg *bootstrap.Config) (*job, error) {
	var req types.UploadJob
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode upload job: %w", err)
		}
	}

	j := &job{
		username: cfg.Username,
		password: cfg.Password,
		mileage:  cfg.Mileage,
		route:    cfg.Route,
		end:      time.Now(),
	}
	if req.Username != "" {
		j.username = req.Username
	}
	if req.Mileage > 0 {
		j.mileage = req.Mileage
	}
	if req.Route != "" {
		j.route = req.Route
	}
	if req.EndTime != "" {
		end, err := time.ParseInLocation(security.TimeLayout, req.EndTime, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid end_time %q: %w", req.EndTime, err)
		}
		j.end = end
	}

	// Bare object names live in the route bucket.
	if cfg.RouteBucket != "" && j.route != "" && !strings.HasPrefix(j.route, "gs://") && !strings.Contains(j.route, "/") {
		j.route = fmt.Sprintf("gs://%s/%s", cfg.RouteBucket, j.route)
	}

	switch {
	case j.username == "" || j.password == "":
		return nil, errors.New("missing credentials: set DER6Y_USERNAME and DER6Y_PASSWORD")
	case strings.Contains(j.username, "/"):
		// Record ids are Firestore document ids.
		return nil, fmt.Errorf("invalid username %q: must not contain '/'", j.username)
	case j.route == "":
		return nil, errors.New("missing route: set DER6Y_ROUTE or pass route")
	case j.mileage <= 0:
		return nil, fmt.Errorf("mileage must be positive, got %v", j.mileage)
	}
	return j, nil
}

// staleClaimAfter is how long a pending record blocks other executions.
const staleClaimAfter = 30 * time.Minute

// uploadHandler contains the business logic
// clientOpts are appended to the backend client options (tests point it at a fake backend).
func uploadHandler(clientOpts ...account.Option) framework.HandlerFunc {
	return func(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		cfg := fwCtx.Service.Config
		db := fwCtx.Service.DB

		data, err := framework.MessageData(e)
		if err != nil {
			return nil, err
		}
		j, err := resolveJob(data, cfg)
		if err != nil {
			return nil, err
		}

		logger := fwCtx.Logger.With("username", j.username)
		day := j.end.Local()
		record := &types.UploadRecord{
			ID:          types.UploadRecordID(j.username, day),
			Username:    j.username,
			Date:        day.Format(types.DateLayout),
			ExecutionID: fwCtx.ExecutionID,
			Status:      types.UploadStatusPending,
			Route:       j.route,
			CreatedAt:   time.Now().UTC(),
		}

		claimed, err := claim(ctx, db, record, logger)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return map[string]interface{}{"status": "skipped", "record_id": record.ID}, nil
		}

		res, err := upload(ctx, fwCtx, j, logger, clientOpts)
		if err != nil {
			if relErr := db.DeleteUploadRecord(ctx, record.ID); relErr != nil {
				logger.Error("Failed to release upload claim", "record_id", record.ID, "error", relErr)
			}
			return nil, err
		}

		record.Status = types.UploadStatusUploaded
		record.Mileage = res.Run.Mileage
		record.KeepTime = res.Run.KeepTime
		record.StartTime = res.Payload.StartTime
		record.EndTime = res.Payload.EndTime
		record.Points = len(res.Payload.RoutineLine)
		record.SignDigital = res.Payload.SignDigital
		record.FitObject = archive(ctx, fwCtx.Service.Store, cfg.RouteBucket, record.ID, res, logger)

		if err := db.SetUploadRecord(ctx, record); err != nil {
			// The upload went through. The pending claim only blocks reruns
			// until it is staleClaimAfter old; a later rerun uploads again.
			logger.Error("Failed to save upload record", "record_id", record.ID, "error", err)
		}

		publish(ctx, fwCtx.Service.Pub, record, logger)

		return map[string]interface{}{
			"status":    "uploaded",
			"record_id": record.ID,
			"mileage":   res.Run.Mileage,
		}, nil
	}
}

// claim reserves the day for this execution. A pending claim older than
// staleClaimAfter belongs to a run that died and is taken over.
func claim(ctx context.Context, db shared.Database, record *types.UploadRecord, logger *slog.Logger) (bool, error) {
	claimed, existing, err := db.ClaimUploadRecord(ctx, record, record.CreatedAt.Add(-staleClaimAfter))
	if err != nil {
		return false, err
	}

	switch {
	case claimed && existing != nil:
		logger.Warn("Took over stale upload claim", "record_id", record.ID, "previous_execution_id", existing.ExecutionID)
	case !claimed && existing != nil:
		logger.Info("Already uploaded today, skipping", "record_id", record.ID, "status", existing.Status, "execution_id", existing.ExecutionID)
	case !claimed:
		logger.Info("Upload claimed elsewhere, skipping", "record_id", record.ID)
	}
	return claimed, nil
}

func upload(ctx context.Context, fwCtx *framework.FrameworkContext, j *job, logger *slog.Logger, clientOpts []account.Option) (*account.UploadResult, error) {
	tmpl, err := storage.ReadTemplate(ctx, fwCtx.Service.Store, j.route)
	if err != nil {
		return nil, err
	}

	opts := append([]account.Option{account.WithLogger(logger.With("component", "account"))}, clientOpts...)
	client := account.New(account.Config{Backend: fwCtx.Service.Config.Backend}, opts...)

	if err := client.Login(ctx, j.username, j.password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	res, err := client.Upload(ctx, tmpl, j.mileage, j.end)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return res, nil
}

// archive stores the uploaded track as a FIT activity next to the routes and
// returns its location, or "" when there is no bucket or the write fails.
func archive(ctx context.Context, store shared.BlobStore, bucket, id string, res *account.UploadResult, logger *slog.Logger) string {
	if bucket == "" || store == nil {
		return ""
	}

	keep := time.Duration(res.Run.KeepTime) * time.Second
	data, err := file_generators.GenerateTrackFit(res.Payload.RoutineLine, res.Run.Start, keep, res.Run.Mileage)
	if err != nil {
		logger.Warn("Failed to generate FIT archive", "error", err)
		return ""
	}

	object := path.Join(archivePrefix, id+".fit")
	if err := store.Write(ctx, bucket, object, data); err != nil {
		logger.Warn("Failed to archive FIT track", "error", err)
		return ""
	}
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

func publish(ctx context.Context, pub shared.Publisher, record *types.UploadRecord, logger *slog.Logger) {
	ev, err := pubsub.NewCloudEvent(shared.EventSource, shared.EventUploadCompleted, record)
	if err != nil {
		logger.Warn("Failed to build upload event", "error", err)
		return
	}
	ev.SetSubject(record.Username)

	msgID, err := pub.PublishCloudEvent(ctx, shared.TopicUploadCompleted, ev)
	if err != nil {
		logger.Warn("Failed to publish upload event", "error", err)
		return
	}
	logger.Info("Published upload event", "message_id", msgID, "topic", shared.TopicUploadCompleted)
}
