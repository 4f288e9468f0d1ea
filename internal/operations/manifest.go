package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"drtbatch/internal/files"
	"drtbatch/pkg/contracts"

	"github.com/google/uuid"
)

// Manifest statuses
const (
	ManifestStatusPending   = "pending"
	ManifestStatusRunning   = "running"
	ManifestStatusCompleted = "completed"
	ManifestStatusFailed    = "failed"
)

// PipelineManifest records the data available to each step and what every
// step did during one run. It is written as run_manifest.json under the root.
type PipelineManifest struct {
	mu sync.RWMutex

	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	Root        string    `json:"root"`
	StartTime   time.Time `json:"start_time"`

	Tool contracts.VersionInfo `json:"tool"`

	Config map[string]interface{} `json:"config,omitempty"`

	AvailableData map[string]*DataInfo `json:"available_data"`

	// Stages in execution order
	Stages []StageExecution `json:"stages"`

	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// DataInfo tracks the files of one data type
type DataInfo struct {
	Type      string    `json:"type"`
	Location  string    `json:"location"`
	FileCount int       `json:"file_count"`
	TotalSize int64     `json:"total_size"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// StageExecution tracks the execution of a single step
type StageExecution struct {
	StageID    string                 `json:"stage_id"`
	StageName  string                 `json:"stage_name"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time,omitempty"`
	Duration   string                 `json:"duration,omitempty"`
	Status     string                 `json:"status"` // running, completed, failed, skipped
	OutputData []string               `json:"output_data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewPipelineManifest creates a manifest for one run below root
func NewPipelineManifest(operationID, root string) *PipelineManifest {
	now := time.Now()
	return &PipelineManifest{
		ID:            uuid.New().String(),
		OperationID:   operationID,
		Root:          root,
		StartTime:     now,
		Tool:          contracts.GetVersionInfo(),
		AvailableData: make(map[string]*DataInfo),
		Stages:        []StageExecution{},
		Status:        ManifestStatusPending,
		LastUpdated:   now,
	}
}

// SetStatus updates the overall status
func (m *PipelineManifest) SetStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = status
	m.LastUpdated = time.Now()
}

// GetData returns information about available data
func (m *PipelineManifest) GetData(dataType string) (*DataInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, exists := m.AvailableData[dataType]
	return data, exists
}

// AddData records newly available data
func (m *PipelineManifest) AddData(dataType string, info *DataInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info.Type = dataType
	info.CreatedAt = time.Now()
	m.AvailableData[dataType] = info
	m.LastUpdated = info.CreatedAt
}

// ScanDataDirectory records the files of output under output.Type. Files
// must match output.Pattern when it is set and end with one of
// output.Extensions. A missing directory records zero files.
func (m *PipelineManifest) ScanDataDirectory(output DataOutput, createdBy string) error {
	info := &DataInfo{Location: output.Location, Files: []string{}, CreatedBy: createdBy}

	if _, err := os.Stat(output.Location); err == nil {
		found, err := scanOutput(output)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", output.Location, err)
		}
		for _, f := range found {
			info.Files = append(info.Files, f.Name)
			info.TotalSize += f.Size
		}
		info.FileCount = len(found)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", output.Location, err)
	}

	m.AddData(output.Type, info)
	return nil
}

func scanOutput(output DataOutput) ([]files.FileInfo, error) {
	discovery := files.NewDiscovery("")
	if output.Pattern == "" {
		return discovery.FindByExtensions(output.Location, output.Extensions...)
	}
	matched, err := discovery.FindFilesByPattern(output.Location, output.Pattern)
	if err != nil || len(output.Extensions) == 0 {
		return matched, err
	}
	return slices.DeleteFunc(matched, func(f files.FileInfo) bool {
		return !files.HasExtension(f.Name, output.Extensions...)
	}), nil
}

// stageIndex returns the index of stageID, or -1. Callers hold the lock.
func (m *PipelineManifest) stageIndex(stageID string) int {
	for i := range m.Stages {
		if m.Stages[i].StageID == stageID {
			return i
		}
	}
	return -1
}

// RecordStageStart records the start of a step; a retry reuses the entry
func (m *PipelineManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.Status = ManifestStatusRunning
	m.LastUpdated = now
	if i := m.stageIndex(stageID); i >= 0 {
		m.Stages[i].StartTime = now
		m.Stages[i].Status = "running"
		m.Stages[i].Error = ""
		return
	}
	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: now,
		Status:    "running",
	})
}

// RecordStageCompletion records the completion of a step
func (m *PipelineManifest) RecordStageCompletion(stageID string, outputData []string, metadata map[string]interface{}) {
	m.finishStage(stageID, "completed", "", func(s *StageExecution) {
		s.OutputData = outputData
		s.Metadata = metadata
	})
}

// RecordStageFailure records a step failure
func (m *PipelineManifest) RecordStageFailure(stageID string, err error, metadata map[string]interface{}) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.finishStage(stageID, "failed", msg, func(s *StageExecution) {
		s.Metadata = metadata
	})
}

// RecordStageSkipped records a step that did not run
func (m *PipelineManifest) RecordStageSkipped(stageID, stageName, reason string) {
	m.mu.Lock()
	if m.stageIndex(stageID) < 0 {
		m.Stages = append(m.Stages, StageExecution{
			StageID:   stageID,
			StageName: stageName,
			StartTime: time.Now(),
		})
	}
	m.mu.Unlock()
	m.finishStage(stageID, "skipped", reason, nil)
}

func (m *PipelineManifest) finishStage(stageID, status, errMsg string, update func(*StageExecution)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.LastUpdated = now
	i := m.stageIndex(stageID)
	if i < 0 {
		return
	}
	s := &m.Stages[i]
	s.EndTime = now
	s.Duration = now.Sub(s.StartTime).String()
	s.Status = status
	s.Error = errMsg
	if update != nil {
		update(s)
	}
}

// Finish sets the final status of the run
func (m *PipelineManifest) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastUpdated = time.Now()
	if err != nil {
		m.Status = ManifestStatusFailed
		m.Error = err.Error()
		return
	}
	m.Status = ManifestStatusCompleted
}

// GetProgress returns the percentage of recorded steps that are finished
func (m *PipelineManifest) GetProgress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Stages) == 0 {
		return 0
	}
	finished := 0
	for _, s := range m.Stages {
		if s.Status != "running" {
			finished++
		}
	}
	return finished * 100 / len(m.Stages)
}

// SaveToFile writes the manifest as indented JSON, atomically
func (m *PipelineManifest) SaveToFile(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := files.NewManager(nil).WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*PipelineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest PipelineManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if manifest.AvailableData == nil {
		manifest.AvailableData = make(map[string]*DataInfo)
	}
	return &manifest, nil
}
