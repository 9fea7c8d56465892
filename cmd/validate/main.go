// Command validate checks a hatchery configuration file without starting
// the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/searchforge/hatchery/config"
	"github.com/searchforge/hatchery/internal/contract"
	"github.com/searchforge/hatchery/policy"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", "config.yml", "path to the configuration file")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	root, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", *path, err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	registry := policy.NewRegistry(root, logger, nil)

	report := make([]contract.ScenarioStatus, 0, len(policy.Scenarios()))
	for _, s := range policy.Scenarios() {
		status := contract.ScenarioStatus{Scenario: s.String()}
		if p, ok := registry.PolicyFor(s); ok {
			status.Available = true
			status.SpawnChance = p.SpawnChance()
			for _, b := range p.Outcomes() {
				status.Blocks = append(status.Blocks, b.AsString())
			}
		} else if err := registry.Failure(s); err != nil {
			status.Error = err.Error()
		}
		report = append(report, status)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"config":    *path,
			"valid":     registry.Complete(),
			"scenarios": report,
			"unknown":   registry.Unknown(),
		})
	} else {
		for _, st := range report {
			if st.Available {
				fmt.Fprintf(stdout, "ok    %-10s chance=%s blocks=%d\n",
					st.Scenario, strconv.FormatFloat(st.SpawnChance, 'g', -1, 64), len(st.Blocks))
				continue
			}
			fmt.Fprintf(stdout, "FAIL  %-10s %s\n", st.Scenario, st.Error)
		}
	}

	if !registry.Complete() {
		return 1
	}
	return 0
}
