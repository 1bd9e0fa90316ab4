package domain

// EngineType definition which rendering backend runs the job
type EngineType string

const (
	//EngineComposition bundles the caller's scene and renders it straight to a video file
	EngineComposition EngineType = "composition"
	//EngineCapture drives a headless browser and screenshots the animation frame by frame
	EngineCapture EngineType = "capture"
)

// Request defaults and upper bounds. Values above the caps are rejected
// outright instead of attempted, since frame count and dimensions translate
// directly into disk and memory usage.
const (
	DefaultFPS              = 30
	DefaultDurationInFrames = 150
	DefaultWidth            = 1920
	DefaultHeight           = 1080

	MaxFPS              = 120
	MaxDurationInFrames = 10800
	MaxDimension        = 4096
)

// ResolutionPresets map preset name to a fixed width/height pair
var ResolutionPresets = map[string][2]int{
	"480p":  {854, 480},
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"4k":    {3840, 2160},
}

// RenderRequest caller input for one render job
type RenderRequest struct {
	ProjectID        string     `json:"project_id"`
	UserID           string     `json:"user_id"`
	SourceCode       string     `json:"source_code"`
	Engine           EngineType `json:"engine"`
	FPS              int        `json:"fps"`
	DurationInFrames int        `json:"duration_in_frames"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	Resolution       string     `json:"resolution"`
}

// Normalize fill defaults and apply the resolution preset
func (r *RenderRequest) Normalize() {
	if r.Engine == "" {
		r.Engine = EngineComposition
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	if r.DurationInFrames == 0 {
		r.DurationInFrames = DefaultDurationInFrames
	}
	if r.Width == 0 && r.Height == 0 {
		if preset, ok := ResolutionPresets[r.Resolution]; ok {
			r.Width, r.Height = preset[0], preset[1]
		} else {
			r.Width, r.Height = DefaultWidth, DefaultHeight
		}
	}
}

// Validate check field ranges, must run after Normalize
func (r *RenderRequest) Validate() *JobError {
	switch {
	case r.ProjectID == "":
		return NewJobError(ErrInvalidRequest, "project_id is required")
	case r.UserID == "":
		return NewJobError(ErrInvalidRequest, "user_id is required")
	case r.SourceCode == "":
		return NewJobError(ErrInvalidRequest, "source_code is required")
	case r.Engine != EngineComposition && r.Engine != EngineCapture:
		return NewJobError(ErrInvalidRequest, "engine must be composition or capture")
	case r.FPS < 1 || r.FPS > MaxFPS:
		return NewJobError(ErrInvalidRequest, "fps out of range")
	case r.DurationInFrames < 1 || r.DurationInFrames > MaxDurationInFrames:
		return NewJobError(ErrInvalidRequest, "duration_in_frames out of range")
	case r.Width < 1 || r.Width > MaxDimension || r.Height < 1 || r.Height > MaxDimension:
		return NewJobError(ErrInvalidRequest, "width/height out of range")
	}
	return nil
}

// RenderResponse uniform response shape, exactly one per job
type RenderResponse struct {
	Success  bool   `json:"success"`
	VideoURL string `json:"videoUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RenderOutput what a backend hands back to the orchestrator.
// The composition engine emits an encoded file directly; the capture engine
// emits a frame directory that still needs the encoder pass.
type RenderOutput struct {
	EncodedFile string
	FrameDir    string
	NeedsEncode bool
}
