package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noogrub/fieldnet/internal/scenario"
	"github.com/noogrub/fieldnet/internal/schedule"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <run_directory>",
		Short: "Load a scenario, print its summary, and compile the fault bundle at a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _ := cmd.Flags().GetFloat64("t")
			auditPath, _ := cmd.Flags().GetString("audit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := scenario.LoadDir(args[0])
			if err != nil {
				return err
			}

			bundle := schedule.Compile(s.Schedule, t)

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"scenario_hash": s.Hash,
					"hash_short":    s.ShortHash(),
					"bundle":        bundle,
				})
			}

			printSummary(s)

			marks := loadMarks(s)
			for _, m := range marks {
				emitMark(m.label, s.Hash, m.note)
			}
			if auditPath != "" {
				if err := persistMarks(cmd.Context(), auditPath, s.Hash, marks); err != nil {
					return err
				}
			}

			blob, err := json.Marshal(bundle)
			if err != nil {
				return err
			}
			fmt.Printf("\nFault bundle @ t=%g:\n%s\n", t, blob)
			fmt.Println("\nStatus: scenario loaded OK")
			return nil
		},
	}
	cmd.Flags().Float64("t", 0, "Timestamp (seconds) to compile the bundle at")
	cmd.Flags().String("audit", "", "SQLite file to persist audit marks to (optional)")
	return cmd
}

type markEntry struct {
	label string
	note  string
}

// loadMarks derives the audit marks a load emits: scenario_loaded, the
// faults enabled/disabled state, and the initial beam state at t=0 when
// the schedule declares one.
func loadMarks(s *scenario.Scenario) []markEntry {
	marks := []markEntry{
		{scenario.MarkScenarioLoaded, "Scenario loaded and validated"},
	}
	if s.Schedule.Enabled {
		marks = append(marks, markEntry{scenario.MarkFaultsEnabled, "Fault injection enabled by scenario"})
	} else {
		marks = append(marks, markEntry{scenario.MarkFaultsDisabled, "Fault injection disabled by scenario"})
	}
	if beam := schedule.InitialBeamMark(s.Schedule); beam != "" {
		marks = append(marks, markEntry{beam, "Initial beam state at t=0"})
	}
	return marks
}

func emitMark(label, scenarioHash, note string) {
	blob, err := json.Marshal(scenario.NewMark(label, scenarioHash, note))
	if err != nil {
		return
	}
	fmt.Println(string(blob))
}

func persistMarks(ctx context.Context, path, hash string, marks []markEntry) error {
	store, err := scenario.OpenAuditStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, m := range marks {
		if _, err := store.RecordMark(ctx, hash, m.label, m.note); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(s *scenario.Scenario) {
	fmt.Println("=== scenctl ===")
	fmt.Printf("run_dir        : %s\n", s.Dir)
	fmt.Printf("run_label      : %v\n", s.Run["run_label"])
	fmt.Printf("intent         : %v\n", s.Run["intent"])
	fmt.Printf("fault_schema   : %s\n", s.Schedule.Schema)
	if logging, ok := s.Logging["logging"].(map[string]any); ok {
		if schema, ok := logging["schema"].(map[string]any); ok {
			fmt.Printf("logging_schema : %v\n", schema["version"])
		}
	}
	fmt.Printf("scenario_hash  : %s\n", s.Hash)
	fmt.Printf("hash_short     : %s\n", s.ShortHash())

	if len(s.Schedule.Faults) > 0 {
		fmt.Println("\nFault summary:")
		for name, f := range s.Schedule.Faults {
			ftype := f.Type
			if ftype == "" {
				ftype = "unknown"
			}
			fmt.Printf("  - %s: %s\n", name, ftype)
		}
	}

	if logging, ok := s.Logging["logging"].(map[string]any); ok {
		if records, ok := logging["records"].(map[string]any); ok && len(records) > 0 {
			fmt.Println("\nLogging summary:")
			for name, cfg := range records {
				rate := any("n/a")
				if m, ok := cfg.(map[string]any); ok {
					if r, ok := m["rate"]; ok {
						rate = r
					}
				}
				fmt.Printf("  - %s: rate=%v\n", name, rate)
			}
		}
	}
}
