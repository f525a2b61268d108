// pfcalc computes a Pathfinder character sheet from a YAML file.
//
// Usage:
//
//	go run ./cmd/pfcalc -sheet amiri.yaml
//	go run ./cmd/pfcalc -sheet amiri.yaml -format json
//	go run ./cmd/pfcalc -sheet amiri.yaml -rounds 3 -trace
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/udisondev/pathtracker/internal/bonus"
)

func main() {
	sheetPath := flag.String("sheet", "", "path to character YAML")
	format := flag.String("format", "text", "output format: text or json")
	rounds := flag.Int("rounds", 0, "advance buff durations before computing")
	trace := flag.Bool("trace", false, "log every stacking decision to stderr")
	flag.Parse()

	if *sheetPath == "" {
		fmt.Fprintln(os.Stderr, "error: -sheet is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	agg := bonus.NewAggregator(bonus.WithLogger(logger), bonus.WithDebug(*trace))

	if err := run(*sheetPath, *format, int32(*rounds), agg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path, format string, rounds int32, agg *bonus.Aggregator) error {
	c, err := loadCharacter(path)
	if err != nil {
		return err
	}
	if rounds > 0 {
		for _, name := range c.TickRounds(rounds) {
			fmt.Fprintf(os.Stderr, "expired: %s\n", name)
		}
	}

	sheet := c.Sheet(agg)
	switch format {
	case "text":
		return renderText(os.Stdout, c.Snapshot(), sheet)
	case "json":
		return renderJSON(os.Stdout, sheet)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
