package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunSealed is returned when a finished run's metadata is modified.
var ErrRunSealed = errors.New("run metadata is sealed")

// PipelineMode selects the quality workflow.
type PipelineMode string

// Available pipeline modes.
const (
	// ModeStandard masks already generated derivatives after the fact.
	ModeStandard PipelineMode = "standard"

	// ModeQualityFirst removes artifact points before regenerating derivatives.
	ModeQualityFirst PipelineMode = "quality_first"
)

// ParsePipelineMode accepts "standard", "quality_first" and "quality-first".
func ParsePipelineMode(s string) (PipelineMode, error) {
	switch s {
	case "standard", "":
		return ModeStandard, nil
	case "quality_first", "quality-first", "quality":
		return ModeQualityFirst, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
}

// String returns the string representation.
func (m PipelineMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m PipelineMode) Description() string {
	switch m {
	case ModeStandard:
		return "Standard (mask existing rasters)"
	case ModeQualityFirst:
		return "Quality-first (crop cloud, regenerate rasters)"
	default:
		return "Unknown"
	}
}

// PipelineState is a node of the orchestrator's state machine.
type PipelineState string

// Orchestrator states.
const (
	StateStart               PipelineState = "start"
	StateDensityComputed     PipelineState = "density_computed"
	StateMaskComputed        PipelineState = "mask_computed"
	StateStandardDone        PipelineState = "standard_done"
	StatePolygonComputed     PipelineState = "polygon_computed"
	StateCropped             PipelineState = "cropped"
	StateRegenerationDone    PipelineState = "regeneration_done"
	StateRegenerationSkipped PipelineState = "regeneration_skipped"
	StateDegraded            PipelineState = "degraded"
	StateFailed              PipelineState = "failed"
)

// IsTerminal reports whether no further transition can occur.
func (s PipelineState) IsTerminal() bool {
	switch s {
	case StateStandardDone, StateRegenerationDone, StateRegenerationSkipped, StateDegraded, StateFailed:
		return true
	default:
		return false
	}
}

// StageName identifies a pipeline stage in run metadata.
type StageName string

// Pipeline stages.
const (
	StageStatistics  StageName = "statistics"
	StageDensity     StageName = "density"
	StageMask        StageName = "mask"
	StageVectorize   StageName = "vectorize"
	StageCrop        StageName = "crop"
	StageClean       StageName = "clean"
	StageRegenerate  StageName = "regenerate"
	StagePersistence StageName = "persistence"
)

// StageResult is the structured outcome of one stage.
type StageResult struct {
	Stage      StageName `json:"stage"`
	Success    bool      `json:"success"`
	Skipped    bool      `json:"skipped,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
	Error      string    `json:"error,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// RunParameters are the knobs used for one run.
type RunParameters struct {
	Resolution        float64      `json:"resolution"`
	NoData            int          `json:"nodata"`
	Threshold         float64      `json:"threshold"`
	SimplifyTolerance float64      `json:"simplify_tolerance"`
	MinArea           float64      `json:"min_area"`
	VectorFormat      string       `json:"vector_format"`
	CropMode          CropMode     `json:"crop_mode"`
	Regenerate        bool         `json:"regenerate"`
	RegenerateTypes   []RasterType `json:"regenerate_types,omitempty"`
	Force             bool         `json:"force"`
}

// QualityRequest asks the orchestrator to process one region.
type QualityRequest struct {
	Region     string
	InputPath  string
	OutputRoot string
	Mode       PipelineMode
	Parameters RunParameters
}

// Validate checks the request before any stage runs.
func (r QualityRequest) Validate() error {
	if r.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	if r.InputPath == "" {
		return fmt.Errorf("%w: input point cloud is required", ErrInvalidInput)
	}
	if r.Mode != ModeStandard && r.Mode != ModeQualityFirst {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, r.Mode)
	}
	if r.Parameters.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be > 0", ErrInvalidInput)
	}
	if r.Parameters.Threshold < 0 {
		return fmt.Errorf("%w: threshold must be >= 0", ErrInvalidInput)
	}
	if r.Parameters.SimplifyTolerance < 0 || r.Parameters.MinArea < 0 {
		return fmt.Errorf("%w: simplify tolerance and min area must be >= 0", ErrInvalidInput)
	}
	return nil
}

// RunMetadata is the append-only record of one orchestrator invocation.
// Once Finish is called the record is sealed.
type RunMetadata struct {
	ID           string              `json:"id"`
	Region       string              `json:"region"`
	Mode         PipelineMode        `json:"mode"`
	InputPath    string              `json:"input_path"`
	OutputRoot   string              `json:"output_root"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Parameters   RunParameters       `json:"parameters"`
	State        PipelineState       `json:"state"`
	Success      bool                `json:"success"`
	Degraded     bool                `json:"degraded"`
	Warnings     []string            `json:"warnings,omitempty"`
	Stages       []StageResult       `json:"stages"`
	Input        *PointCloudInfo     `json:"input,omitempty"`
	Density      *DensityRaster      `json:"density,omitempty"`
	Mask         *BinaryMask         `json:"mask,omitempty"`
	Footprint    *Footprint          `json:"footprint,omitempty"`
	Crop         *CroppedPointCloud  `json:"crop,omitempty"`
	Cleaning     *CleanBatchReport   `json:"cleaning,omitempty"`
	Regeneration *RegenerationReport `json:"regeneration,omitempty"`
	MetadataPath string              `json:"metadata_path,omitempty"`

	sealed bool
}

// NewRunMetadata starts a record for the request.
func NewRunMetadata(id string, req QualityRequest, now time.Time) *RunMetadata {
	return &RunMetadata{
		ID:         id,
		Region:     req.Region,
		Mode:       req.Mode,
		InputPath:  req.InputPath,
		OutputRoot: req.OutputRoot,
		StartedAt:  now,
		Parameters: req.Parameters,
		State:      StateStart,
	}
}

// Record appends a stage result.
func (m *RunMetadata) Record(r StageResult) error {
	if m.sealed {
		return ErrRunSealed
	}
	m.Stages = append(m.Stages, r)
	return nil
}

// Warn appends a run-level warning.
func (m *RunMetadata) Warn(msg string) error {
	if m.sealed {
		return ErrRunSealed
	}
	m.Warnings = append(m.Warnings, msg)
	return nil
}

// Transition moves the state machine forward.
func (m *RunMetadata) Transition(s PipelineState) error {
	if m.sealed {
		return ErrRunSealed
	}
	if m.State.IsTerminal() {
		return fmt.Errorf("cannot leave terminal state %s", m.State)
	}
	m.State = s
	return nil
}

// Finish seals the record in a terminal state.
func (m *RunMetadata) Finish(s PipelineState, success bool, at time.Time) error {
	if m.sealed {
		return ErrRunSealed
	}
	m.State = s
	m.Success = success
	m.Degraded = s == StateDegraded
	m.FinishedAt = at
	m.sealed = true
	return nil
}

// Seal marks a record loaded from storage as immutable.
func (m *RunMetadata) Seal() {
	m.sealed = true
}

// Sealed reports whether Finish has been called.
func (m *RunMetadata) Sealed() bool {
	return m.sealed
}

// StageResult returns the recorded result for a stage.
func (m *RunMetadata) StageResult(name StageName) (StageResult, bool) {
	for _, s := range m.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// RunSummary is a compact listing entry for persisted runs.
type RunSummary struct {
	ID         string        `json:"id"`
	Region     string        `json:"region"`
	Mode       PipelineMode  `json:"mode"`
	State      PipelineState `json:"state"`
	Success    bool          `json:"success"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Summary returns the listing entry for the run.
func (m *RunMetadata) Summary() RunSummary {
	return RunSummary{
		ID:         m.ID,
		Region:     m.Region,
		Mode:       m.Mode,
		State:      m.State,
		Success:    m.Success,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// Matches reports whether a summary passes the filter's region test.
func (f RunFilter) Matches(s RunSummary) bool {
	return f.Region == "" || f.Region == s.Region
}

// RunFilter narrows a run listing. Zero values match everything.
type RunFilter struct {
	Region string
	Limit  int
}
