package types

import "time"

// Topic is the subject of one video
type Topic struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Fact is the claim the fact stage produced for a topic
type Fact struct {
	Text  string `json:"text"`
	Topic Topic  `json:"topic"`
}

// Script is the narration text written from a fact
type Script struct {
	Text           string        `json:"text"`
	TargetDuration time.Duration `json:"target_duration"`
	Style          string        `json:"style"`
}

// AudioAsset is a synthesized narration track on disk
type AudioAsset struct {
	Path       string        `json:"path"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
}

// VideoAsset is a raw visual track on disk
type VideoAsset struct {
	Path     string        `json:"path"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"duration"`
}

// ComposedVideo is the final deliverable of a pipeline run. Fact is what the
// video tells; publishing derives its metadata from it.
type ComposedVideo struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Subtitles string    `json:"subtitles,omitempty"`
	Fact      Fact      `json:"fact"`
}

// Platform identifies a publishing target
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// Platforms lists every supported publishing target in fan-out order
var Platforms = []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube}

// ParsePlatform maps a name onto a known platform
func ParsePlatform(name string) (Platform, bool) {
	for _, p := range Platforms {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// PublishResult maps each attempted platform to whether its upload succeeded
type PublishResult map[Platform]bool

// Succeeded reports whether at least one platform accepted the upload
func (r PublishResult) Succeeded() bool {
	for _, ok := range r {
		if ok {
			return true
		}
	}
	return false
}

// StageReport records how one stage of a run ended
type StageReport struct {
	Stage   string        `json:"stage"`
	Outcome string        `json:"outcome"`
	Backend string        `json:"backend,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// RunState tracks the full state of one pipeline run
type RunState struct {
	RunID       string        `json:"run_id"`
	Topic       Topic         `json:"topic"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Status      string        `json:"status"`
	Fact        string        `json:"fact,omitempty"`
	Script      string        `json:"script,omitempty"`
	AudioFile   string        `json:"audio_file,omitempty"`
	VideoFile   string        `json:"video_file,omitempty"`
	FinalFile   string        `json:"final_file,omitempty"`
	ArchiveURL  string        `json:"archive_url,omitempty"`
	Stages      []StageReport `json:"stages"`
	Error       string        `json:"error,omitempty"`
}
