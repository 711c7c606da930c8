package domain

import (
	"strings"
	"time"
)

// WorkflowMode enumerates the supported generation workflows.
type WorkflowMode string

const (
	ModeCreative   WorkflowMode = "creative"
	ModePlanting   WorkflowMode = "planting"
	ModeFusion     WorkflowMode = "fusion"
	ModeExtraction WorkflowMode = "extraction"
	ModeFaceSwap   WorkflowMode = "face_swap"
	ModeFission    WorkflowMode = "fission"
	ModeBgSwap     WorkflowMode = "bg_swap"
	ModeDetail     WorkflowMode = "detail"
	ModeBatch      WorkflowMode = "batch"
)

// ParseWorkflowMode normalizes free-form input. Unknown values return false.
func ParseWorkflowMode(v string) (WorkflowMode, bool) {
	mode := WorkflowMode(strings.ToLower(strings.TrimSpace(v)))
	switch mode {
	case ModeCreative, ModePlanting, ModeFusion, ModeExtraction, ModeFaceSwap,
		ModeFission, ModeBgSwap, ModeDetail, ModeBatch:
		return mode, true
	case "agent_batch":
		return ModeBatch, true
	}
	return "", false
}

// ImageSize is the requested resolution tier.
type ImageSize string

const (
	Size1K ImageSize = "1K"
	Size2K ImageSize = "2K"
	Size4K ImageSize = "4K"
)

// Tier identifies a provider model tier.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusPartial   JobStatus = "PARTIAL"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// JobOptions carries the per-mode structured choices.
type JobOptions struct {
	ModelStyle string `json:"model_style,omitempty" yaml:"model_style,omitempty"`
	ModelID    string `json:"model_id,omitempty" yaml:"model_id,omitempty"`

	PlantingPreset string `json:"planting_preset,omitempty" yaml:"planting_preset,omitempty"`

	ExtractCategory string `json:"extract_category,omitempty" yaml:"extract_category,omitempty"`
	ExtractMode     string `json:"extract_mode,omitempty" yaml:"extract_mode,omitempty"`

	FusionAutoCutout  bool   `json:"fusion_auto_cutout,omitempty" yaml:"fusion_auto_cutout,omitempty"`
	FusionModelMode   string `json:"fusion_model_mode,omitempty" yaml:"fusion_model_mode,omitempty"`
	FusionSkinTone    string `json:"fusion_skin_tone,omitempty" yaml:"fusion_skin_tone,omitempty"`
	FusionBodyShape   string `json:"fusion_body_shape,omitempty" yaml:"fusion_body_shape,omitempty"`
	FusionPoseMode    string `json:"fusion_pose_mode,omitempty" yaml:"fusion_pose_mode,omitempty"`
	FusionPoseID      string `json:"fusion_pose_id,omitempty" yaml:"fusion_pose_id,omitempty"`
	FusionSceneMode   string `json:"fusion_scene_mode,omitempty" yaml:"fusion_scene_mode,omitempty"`
	FusionSceneID     string `json:"fusion_scene_id,omitempty" yaml:"fusion_scene_id,omitempty"`
	FusionComposition string `json:"fusion_composition,omitempty" yaml:"fusion_composition,omitempty"`

	FaceSwapMode   string `json:"face_swap_mode,omitempty" yaml:"face_swap_mode,omitempty"`
	FaceSource     string `json:"face_source,omitempty" yaml:"face_source,omitempty"`
	FaceSimilarity int    `json:"face_similarity,omitempty" yaml:"face_similarity,omitempty"`
	Expression     string `json:"expression,omitempty" yaml:"expression,omitempty"`
	AgeGroup       string `json:"age_group,omitempty" yaml:"age_group,omitempty"`

	Lighting string `json:"lighting,omitempty" yaml:"lighting,omitempty"`
	Blur     int    `json:"blur,omitempty" yaml:"blur,omitempty"`
}

// Job is one user-initiated generation request.
type Job struct {
	ID             string       `json:"id"`
	Mode           WorkflowMode `json:"mode"`
	Prompt         string       `json:"prompt"`
	NegativePrompt string       `json:"negative_prompt,omitempty"`
	AspectRatio    string       `json:"aspect_ratio,omitempty"`
	ImageSize      ImageSize    `json:"image_size,omitempty"`
	Quantity       int          `json:"quantity,omitempty"`
	Confirmed      bool         `json:"confirmed,omitempty"`

	ReferenceImage *ImageRef  `json:"reference_image,omitempty"`
	PoseImage      *ImageRef  `json:"pose_image,omitempty"`
	FaceImage      *ImageRef  `json:"face_image,omitempty"`
	FusionImages   []ImageRef `json:"fusion_images,omitempty"`
	ProductImages  []ImageRef `json:"product_images,omitempty"`

	Poses   []string `json:"poses,omitempty"`
	Scenes  []string `json:"scenes,omitempty"`
	Details []string `json:"details,omitempty"`

	Options JobOptions `json:"options"`
}

// Axis is one ordered dimension of a fan-out.
type Axis struct {
	Name   string
	Values []string
}

// Combination is one point of the cartesian product of a set of axes.
type Combination struct {
	Ordinal int
	Values  map[string]string
}

// Value returns the axis value chosen for name.
func (c Combination) Value(name string) string {
	return c.Values[name]
}

// Task is one provider invocation derived from a Job. Immutable once built.
type Task struct {
	JobID          string
	Index          int
	Prompt         string
	NegativePrompt string
	References     []ImageRef
	AspectRatio    string
	ImageSize      ImageSize
	LayerName      string
}

// TaskOutcome is the result value of one Task: either an asset or a reason.
type TaskOutcome struct {
	Index     int
	LayerName string
	Asset     *AssetRef
	LayerID   string
	Err       error
}

// Succeeded builds a successful outcome.
func Succeeded(task Task, asset AssetRef, layerID string) TaskOutcome {
	return TaskOutcome{Index: task.Index, LayerName: task.LayerName, Asset: &asset, LayerID: layerID}
}

// Failed builds a failed outcome.
func Failed(task Task, err error) TaskOutcome {
	return TaskOutcome{Index: task.Index, LayerName: task.LayerName, Err: err}
}

// OK reports whether the outcome carries an asset.
func (o TaskOutcome) OK() bool {
	return o.Err == nil && o.Asset != nil
}

// Reason returns the failure description, empty on success.
func (o TaskOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// BatchProgress counts resolved tasks of one job. Completed includes
// failures; Failed is the failed subset.
type BatchProgress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Done reports whether every task has resolved.
func (p BatchProgress) Done() bool {
	return p.Completed >= p.Total
}

// Succeeded is the number of tasks that produced an asset.
func (p BatchProgress) Succeeded() int {
	return p.Completed - p.Failed
}

// JobRecord is the persisted view of a queued job.
type JobRecord struct {
	ID              string
	Status          JobStatus
	Job             Job
	Progress        BatchProgress
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
