// Package scenario loads and validates a run/faults/logging configuration
// bundle, computes its canonical content hash, and records audit marks.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/noogrub/fieldnet/internal/schedule"
)

// File names that make up a scenario directory.
const (
	RunFile     = "run.yaml"
	FaultsFile  = "scenario.faults.yaml"
	LoggingFile = "scenario.logging.yaml"
)

// Mark labels emitted while loading.
const (
	MarkScenarioLoaded = "scenario_loaded"
	MarkFaultsEnabled  = "faults_enabled"
	MarkFaultsDisabled = "faults_disabled"
)

// ValidationError reports required top-level keys missing from one of the
// scenario documents. Only structural failures like this abort a load;
// malformed segment data is tolerated by the compiler.
type ValidationError struct {
	Doc     string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required keys: %v", e.Doc, e.Missing)
}

// Scenario is a loaded and validated configuration bundle.
type Scenario struct {
	Dir     string
	Run     map[string]any
	Faults  map[string]any
	Logging map[string]any

	// Schedule is the typed view of the faults document, as consumed by
	// the schedule compiler.
	Schedule schedule.Schedule

	// Hash is the canonical content hash over {run, faults, logging}.
	Hash string
}

// ShortHash is the 8-character scenario label.
func (s *Scenario) ShortHash() string { return ShortHash(s.Hash) }

// LoadDir reads run.yaml, scenario.faults.yaml, and scenario.logging.yaml
// from dir, validates their required top-level keys, and computes the
// scenario hash.
func LoadDir(dir string) (*Scenario, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("scenario: not a directory: %s", dir)
	}

	run, _, err := loadYAML(filepath.Join(dir, RunFile))
	if err != nil {
		return nil, err
	}
	faults, faultsBlob, err := loadYAML(filepath.Join(dir, FaultsFile))
	if err != nil {
		return nil, err
	}
	logging, _, err := loadYAML(filepath.Join(dir, LoggingFile))
	if err != nil {
		return nil, err
	}

	if err := requireKeys(run, []string{"run_label", "intent"}, RunFile); err != nil {
		return nil, err
	}
	if err := requireKeys(faults, []string{"schema", "enabled", "segments"}, FaultsFile); err != nil {
		return nil, err
	}
	if err := requireKeys(logging, []string{"logging"}, LoggingFile); err != nil {
		return nil, err
	}
	loggingInner, _ := logging["logging"].(map[string]any)
	if err := requireKeys(loggingInner, []string{"enabled", "schema", "records"}, LoggingFile+":logging"); err != nil {
		return nil, err
	}

	var sched schedule.Schedule
	if err := yaml.Unmarshal(faultsBlob, &sched); err != nil {
		return nil, fmt.Errorf("scenario: decode %s: %w", FaultsFile, err)
	}

	hash, err := CanonicalHash(map[string]any{
		"run":     run,
		"faults":  faults,
		"logging": logging,
	})
	if err != nil {
		return nil, err
	}

	return &Scenario{
		Dir:      dir,
		Run:      run,
		Faults:   faults,
		Logging:  logging,
		Schedule: sched,
		Hash:     hash,
	}, nil
}

// NewMark builds an audit mark record in its wire shape. note may be nil.
func NewMark(label, scenarioHash string, note any) map[string]any {
	return map[string]any{
		"record": map[string]any{
			"type":           "mark",
			"schema_version": "node_state_schema_v0",
		},
		"time": map[string]any{
			"sim_s":   0.0,
			"wall_ts": nil,
		},
		"experiment": map[string]any{
			"scenario_hash": scenarioHash,
		},
		"mark": map[string]any{
			"label": label,
			"note":  note,
		},
	}
}

func loadYAML(path string) (map[string]any, []byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario: missing required file: %s", path)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(blob, &doc); err != nil {
		return nil, nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	return doc, blob, nil
}

func requireKeys(doc map[string]any, keys []string, label string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := doc[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Doc: label, Missing: missing}
	}
	return nil
}
