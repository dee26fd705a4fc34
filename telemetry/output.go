package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/verdant/config"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir           string
	telemetryFile *os.File
	eventFile     *os.File

	// Track if headers have been written
	telemetryHeaderWritten bool
	eventHeaderWritten     bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	telemetryPath := filepath.Join(dir, "telemetry.csv")
	f, err := os.Create(telemetryPath)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	om.telemetryFile = f

	eventPath := filepath.Join(dir, "events.csv")
	f, err = os.Create(eventPath)
	if err != nil {
		om.telemetryFile.Close()
		return nil, fmt.Errorf("creating events.csv: %w", err)
	}
	om.eventFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.telemetryHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.telemetryFile); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		om.telemetryHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.telemetryFile); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}

	return nil
}

// EventCSV is the flattened row format for the raw event log.
type EventCSV struct {
	Tick       uint64 `csv:"tick"`
	Type       string `csv:"type"`
	OrganismID uint64 `csv:"organism"`
	Detail     string `csv:"detail"`
	Amount     uint64 `csv:"amount"`
}

// WriteEvent appends a raw event record to events.csv.
func (om *OutputManager) WriteEvent(e Event) error {
	if om == nil {
		return nil
	}

	row := EventCSV{
		Tick:       e.Tick,
		Type:       e.Type.String(),
		OrganismID: e.OrganismID,
		Amount:     e.Amount,
	}
	switch e.Type {
	case EventStageTransition:
		row.Detail = e.Stage.String()
	case EventAllocationGranted, EventAllocationQueued, EventClaim:
		row.Detail = e.Resource.String()
	case EventDataSubmitted, EventDataValidated, EventDataRejected, EventDataExpired, EventAnomaly:
		row.Detail = e.DataType.String()
	}

	records := []EventCSV{row}
	if !om.eventHeaderWritten {
		if err := gocsv.Marshal(records, om.eventFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		om.eventHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.eventFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.telemetryFile != nil {
		if err := om.telemetryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.eventFile != nil {
		if err := om.eventFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
