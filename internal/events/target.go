package events

// Entity types
const (
	EntityRun    = "run"
	EntityTarget = "target"
)

// Event type constants
const (
	EventRunStarted        = "run.started"
	EventRunFinished       = "run.finished"
	EventTargetResolved    = "target.resolved"
	EventTargetFailed      = "target.failed"
	EventTargetSkipped     = "target.skipped"
	EventDownloadCompleted = "download.completed"
)

// RunStarted is emitted once per pipeline pass.
type RunStarted struct {
	BaseEvent
	Mode     string `json:"mode"` // fetch, retry, harvest
	Strategy string `json:"strategy"`
	Targets  int    `json:"targets"`
	DryRun   bool   `json:"dry_run"`
}

// RunFinished closes a pass with its summary counts.
type RunFinished struct {
	BaseEvent
	Resolved int   `json:"resolved"`
	Failed   int   `json:"failed"`
	Skipped  int   `json:"skipped"`
	Elapsed  int64 `json:"elapsed_ms"`
}

// TargetResolved is emitted when a strategy finds a media URL.
type TargetResolved struct {
	BaseEvent
	Title    string `json:"title"`
	Method   string `json:"method"`
	FinalURL string `json:"final_url"`
	Matched  bool   `json:"angle_matched"`
}

// TargetFailed is emitted when a target ends in the failure ledger.
type TargetFailed struct {
	BaseEvent
	Title  string `json:"title"`
	Method string `json:"method"`
	Reason string `json:"reason"`
}

// TargetSkipped is emitted when a target needs no work.
type TargetSkipped struct {
	BaseEvent
	Title  string `json:"title"`
	Reason string `json:"reason"` // "ledger" or "file_exists"
}

// DownloadCompleted is emitted when a media file lands on disk.
type DownloadCompleted struct {
	BaseEvent
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
	Skipped bool   `json:"skipped"` // file already existed
}
