package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	shared "github.com/yaoshiu/pretty-der6y/pkg"
	"github.com/yaoshiu/pretty-der6y/pkg/account"
	"github.com/yaoshiu/pretty-der6y/pkg/bootstrap"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/file_generators"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/security"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/storage"
)

type options struct {
	username string
	password string
	mileage  float64
	route    string
	endTime  string
	verbose  bool
	dryRun   bool
	fitOut   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "der6y: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := bootstrap.LoadConfig()

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	logger := bootstrap.NewCLILogger(stderr, opts.verbose).With("component", "der6y")
	p := message.NewPrinter(language.English)

	end := time.Now()
	if opts.endTime != "" {
		end, err = time.ParseInLocation(security.TimeLayout, opts.endTime, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -time %q: %w", opts.endTime, err)
		}
	}

	var store shared.BlobStore
	if strings.HasPrefix(opts.route, "gs://") {
		if store, err = bootstrap.NewStore(ctx, cfg); err != nil {
			return err
		}
	}
	tmpl, err := storage.ReadTemplate(ctx, store, opts.route)
	if err != nil {
		return err
	}
	logger.Debug("Route loaded", "route", opts.route, "vertices", len(tmpl), "loop_km", tmpl.Length())

	if opts.dryRun {
		return dryRun(opts, tmpl, end, logger, p, stdout)
	}

	client := account.New(account.Config{Backend: cfg.Backend}, account.WithLogger(logger))

	logger.Info("Logging in", "username", opts.username)
	if err := client.Login(ctx, opts.username, opts.password); err != nil {
		return err
	}

	logger.Info("Uploading running data", "mileage", opts.mileage, "end", end.Format(security.TimeLayout))
	res, err := client.Upload(ctx, tmpl, opts.mileage, end)
	if err != nil {
		return err
	}

	p.Fprintf(stdout, "Uploaded %.3f km from %s to %s (%d s, %d points)\n",
		res.Run.Mileage, res.Payload.StartTime, res.Payload.EndTime, res.Run.KeepTime, len(res.Payload.RoutineLine))

	return writeFit(opts.fitOut, res.Payload.RoutineLine, res.Run, p, stdout)
}

func parseFlags(args []string, cfg *bootstrap.Config, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("der6y", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.username, "username", cfg.Username, "Account username (DER6Y_USERNAME)")
	fs.StringVar(&opts.password, "password", cfg.Password, "Account password (DER6Y_PASSWORD)")
	fs.Float64Var(&opts.mileage, "mileage", cfg.Mileage, "Target distance in km (DER6Y_MILEAGE)")
	fs.StringVar(&opts.route, "route", cfg.Route, "GeoJSON or FIT route template, local path or gs://bucket/object (DER6Y_ROUTE)")
	fs.StringVar(&opts.endTime, "time", "", `End time "YYYY-MM-DD HH:MM:SS" in local time (default now)`)
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Synthesize and sign locally without contacting the backend")
	fs.StringVar(&opts.fitOut, "fit", "", "Also write the synthesized track to this FIT file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.route == "" {
		return nil, errors.New("-route is required")
	}
	if opts.mileage <= 0 {
		return nil, fmt.Errorf("-mileage must be positive, got %v", opts.mileage)
	}
	if !opts.dryRun && (opts.username == "" || opts.password == "") {
		return nil, errors.New("-username and -password are required")
	}
	return opts, nil
}

func dryRun(opts *options, tmpl routine.Template, end time.Time, logger *slog.Logger, p *message.Printer, stdout io.Writer) error {
	rng := routine.NewRand()

	run := account.PlanRun(opts.mileage, end, rng)
	track, err := routine.Synthesize(tmpl, run.Mileage, rng)
	if err != nil {
		return err
	}
	logger.Debug("Dry run planned", "keep_time", run.KeepTime, "calorie", run.Calorie, "ave_pace", run.AvePace)

	p.Fprintf(stdout, "Dry run: %.3f km from %s to %s (%d s, %d points)\n",
		run.Mileage, run.Start.Format(security.TimeLayout), run.End.Format(security.TimeLayout), run.KeepTime, len(track))
	p.Fprintf(stdout, "signDigital: %s\n", run.Digest)

	return writeFit(opts.fitOut, track, run, p, stdout)
}

func writeFit(path string, track []routine.Point, run account.Run, p *message.Printer, stdout io.Writer) error {
	if path == "" {
		return nil
	}

	data, err := file_generators.GenerateTrackFit(track, run.Start, time.Duration(run.KeepTime)*time.Second, run.Mileage)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write FIT file: %w", err)
	}

	p.Fprintf(stdout, "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
