package record

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

// ErrNoColumn is returned by Trace.Column for an unknown column.
var ErrNoColumn = errors.New("record: no such column")

// Metadata describes one stored run.
type Metadata struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"` // simulate or teleoperate
	Timestamp  time.Time         `json:"timestamp"`
	Hz         int               `json:"hz"`
	Duration   float64           `json:"duration"`
	Ticks      uint64            `json:"ticks"`
	Underflows uint64            `json:"underflows"`
	Device     string            `json:"device"`
	Links      []kinematics.Link `json:"links"`
	Initial    []float64         `json:"initial"`
	Final      []float64         `json:"final,omitempty"`
	Samples    int               `json:"samples"`
}

// Store keeps runs as directories of metadata.json and trace.csv.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// Save writes a new run and returns its ID.
func (s *Store) Save(meta Metadata, samples []teleop.Snapshot) (string, error) {
	if meta.Kind == "" {
		meta.Kind = "run"
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.ID = fmt.Sprintf("%s_%s", meta.Kind, meta.Timestamp.Format("20060102-150405.000"))
	meta.Samples = len(samples)
	if len(samples) > 0 && meta.Final == nil {
		meta.Final = append([]float64(nil), samples[len(samples)-1].Position...)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if err := writeTrace(filepath.Join(runDir, traceFile), samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// Header returns the trace column names for an n-joint arm.
func Header(n int) []string {
	h := []string{"time"}
	for i := 0; i < n; i++ {
		h = append(h, fmt.Sprintf("q%d", i))
	}
	for i := 0; i < n; i++ {
		h = append(h, fmt.Sprintf("dq%d", i))
	}
	return append(h, "x", "y", "phi", "vx", "vy", "manipulability", "damped")
}

func writeTrace(path string, samples []teleop.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(samples) > 0 {
		if err := w.Write(Header(len(samples[0].Position))); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}
	for _, s := range samples {
		if err := w.Write(row(s)); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return f.Close()
}

func row(s teleop.Snapshot) []string {
	ff := func(x float64) string { return strconv.FormatFloat(x, 'f', 6, 64) }
	r := []string{ff(s.Time)}
	for _, q := range s.Position {
		r = append(r, ff(q))
	}
	for _, dq := range s.Velocity {
		r = append(r, ff(dq))
	}
	damped := "0"
	if s.Damped {
		damped = "1"
	}
	return append(r, ff(s.Pose.X), ff(s.Pose.Y), ff(s.Pose.Phi), ff(s.Input.X), ff(s.Input.Y),
		ff(s.Manipulability), damped)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Load reads a run's metadata.
func (s *Store) Load(runID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", runID, err)
	}
	return &meta, nil
}

// Trace is a loaded trace.csv.
type Trace struct {
	Columns []string
	Rows    [][]float64
}

// Column returns one column by name.
func (t *Trace) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// LoadTrace reads a run's trace.csv.
func (s *Store) LoadTrace(runID string) (*Trace, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", runID, err)
	}
	t := &Trace{}
	if len(records) == 0 {
		return t, nil
	}
	t.Columns = records[0]
	for n, rec := range records[1:] {
		vals := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("trace %s row %d column %d: %w", runID, n+1, i, err)
			}
			vals[i] = v
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, nil
}
