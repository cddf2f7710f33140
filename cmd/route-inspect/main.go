package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/paulmach/orb"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/fit_parser"
	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/storage"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("route-inspect", flag.ContinueOnError)
	inputPath := fs.String("input", "", "Path to a GeoJSON route or FIT activity")
	exportPath := fs.String("export", "", "Write the route as a GeoJSON template to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" {
		return errors.New("please provide input file with -input")
	}

	tmpl, err := storage.ReadTemplate(ctx, nil, *inputPath)
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(*inputPath), ".fit") {
		if err := printSession(stdout, *inputPath); err != nil {
			return err
		}
	}
	printTemplate(stdout, tmpl)

	if *exportPath != "" {
		data, err := tmpl.GeoJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*exportPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *exportPath, err)
		}
		fmt.Fprintf(stdout, "\nWrote %s\n", *exportPath)
	}
	return nil
}

func printSession(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	track, err := fit_parser.ParseTrack(data)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== SESSION ===")
	sw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(sw, "Start Time\tDuration\tDistance\tSport\tRecords")
	fmt.Fprintln(sw, "----------\t--------\t--------\t-----\t-------")
	fmt.Fprintf(sw, "%s\t%s\t%.2f km\t%s\t%d\n",
		track.StartTime.Format("2006-01-02 15:04:05"), track.TotalElapsed, track.TotalDistanceM/1000, track.Sport, len(track.Records))
	sw.Flush()
	fmt.Fprintln(w)
	return nil
}

func printTemplate(w io.Writer, tmpl routine.Template) {
	bound := orb.LineString(tmpl).Bound()

	fmt.Fprintln(w, "=== ROUTE ===")
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Vertices\t%d\n", len(tmpl))
	fmt.Fprintf(tw, "Loop length\t%.3f km\n", tmpl.Length())
	fmt.Fprintf(tw, "South-west\t%.6f, %.6f\n", bound.Min.Lat(), bound.Min.Lon())
	fmt.Fprintf(tw, "North-east\t%.6f, %.6f\n", bound.Max.Lat(), bound.Max.Lon())
	tw.Flush()
}
