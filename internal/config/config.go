package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsPath is where the optional yaml settings live
const DefaultSettingsPath = "config/settings.yaml"

type Config struct {
	Text     TextConfig     `yaml:"text"`
	Voice    VoiceConfig    `yaml:"voice"`
	Video    VideoConfig    `yaml:"video"`
	Compose  ComposeConfig  `yaml:"compose"`
	Publish  PublishConfig  `yaml:"publish"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Topics   TopicsConfig   `yaml:"topics"`
	Paths    PathsConfig    `yaml:"paths"`
	Features FeaturesConfig `yaml:"features"`
}

type TextConfig struct {
	Provider    string        `yaml:"provider"`
	OllamaHost  string        `yaml:"ollama_host"`
	OllamaModel string        `yaml:"ollama_model"`
	Temperature float64       `yaml:"temperature"`
	GroqAPIKey  string        `yaml:"-"`
	GroqModel   string        `yaml:"groq_model"`
	Timeout     time.Duration `yaml:"timeout"`
}

type VoiceConfig struct {
	Provider          string `yaml:"provider"`
	Command           string `yaml:"command"`
	ElevenLabsAPIKey  string `yaml:"-"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
	ElevenLabsModel   string `yaml:"elevenlabs_model"`
	SampleRate        int    `yaml:"sample_rate"`
}

type VideoConfig struct {
	Provider          string `yaml:"provider"`
	ReplicateAPIToken string `yaml:"-"`
	ReplicateModel    string `yaml:"replicate_model"`
	LibraryDir        string `yaml:"library_dir"`
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	FPS               int    `yaml:"fps"`
}

type ComposeConfig struct {
	FFmpegPath    string `yaml:"ffmpeg_path"`
	BurnSubtitles bool   `yaml:"burn_subtitles"`
}

type PublishConfig struct {
	BlotatoAPIKey       string `yaml:"-"`
	BlotatoURL          string `yaml:"blotato_url"`
	ToTikTok            bool   `yaml:"publish_to_tiktok"`
	ToInstagram         bool   `yaml:"publish_to_instagram"`
	ToYouTube           bool   `yaml:"publish_to_youtube"`
	Title               string `yaml:"title"`
	RatePerMinute       int    `yaml:"rate_per_minute"`
	YouTubeClientID     string `yaml:"-"`
	YouTubeClientSecret string `yaml:"-"`
	YouTubeRefreshToken string `yaml:"-"`
	YouTubeVisibility   string `yaml:"youtube_visibility"`
}

type ScheduleConfig struct {
	Enabled         bool     `yaml:"enabled"`
	VideosPerDay    int      `yaml:"videos_per_day"`
	GenerationHours []string `yaml:"generation_hours"`
	Crons           []string `yaml:"crons"`
	Timezone        string   `yaml:"timezone"`
}

type DefaultsConfig struct {
	Topic    string   `yaml:"topic"`
	Topics   []string `yaml:"topics"`
	Duration int      `yaml:"duration"`
	Style    string   `yaml:"style"`
	Language string   `yaml:"language"`
}

type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

type TopicsConfig struct {
	Subreddits []string `yaml:"subreddits"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
	DB     string `yaml:"db"`
}

type FeaturesConfig struct {
	AutoPublish   bool `yaml:"auto_publish"`
	CacheEnabled  bool `yaml:"cache_enabled"`
	Debug         bool `yaml:"debug"`
	ParallelMedia bool `yaml:"parallel_media"`
}

// Default returns the configuration used when neither settings.yaml nor the
// environment say otherwise
func Default() *Config {
	return &Config{
		Text: TextConfig{
			Provider:    "ollama",
			OllamaHost:  "http://localhost:11434",
			OllamaModel: "qwen2.5:32b",
			Temperature: 0.7,
			GroqModel:   "llama-3.3-70b-versatile",
			Timeout:     60 * time.Second,
		},
		Voice: VoiceConfig{
			Provider:          "silero",
			ElevenLabsVoiceID: "21m00Tcm4TlvDq8ikWAM",
			ElevenLabsModel:   "eleven_multilingual_v2",
			SampleRate:        48000,
		},
		Video: VideoConfig{
			Provider:       "replicate",
			ReplicateModel: "wan-video/wan-2.2-t2v-fast",
			LibraryDir:     "assets/video",
			Width:          1080,
			Height:         1920,
			FPS:            30,
		},
		Compose: ComposeConfig{
			FFmpegPath: "ffmpeg",
		},
		Publish: PublishConfig{
			BlotatoURL:        "https://api.blotato.com",
			ToTikTok:          true,
			ToInstagram:       true,
			ToYouTube:         true,
			Title:             "Interesting fact! 🤯",
			RatePerMinute:     30,
			YouTubeVisibility: "public",
		},
		Schedule: ScheduleConfig{
			VideosPerDay:    3,
			GenerationHours: []string{"09:00", "15:00", "21:00"},
			Timezone:        "Local",
		},
		Defaults: DefaultsConfig{
			Topic:    "interesting facts",
			Topics:   []string{"space", "science", "technology"},
			Duration: 45,
			Style:    "energetic",
			Language: "en",
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
		},
		Paths: PathsConfig{
			Output: "output",
			Logs:   "logs",
			DB:     "cache/runs.db",
		},
		Features: FeaturesConfig{
			CacheEnabled:  true,
			ParallelMedia: true,
		},
	}
}

// Load reads .env, then settingsPath (if it exists), then the environment.
// Later sources win.
func Load(settingsPath string) (*Config, error) {
	// .env is optional; real deployments pass the environment directly
	_ = godotenv.Load()

	cfg := Default()
	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse %s", settingsPath)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read %s", settingsPath)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Text.Provider = getEnv("TEXT_PROVIDER", c.Text.Provider)
	c.Text.OllamaHost = getEnv("OLLAMA_HOST", c.Text.OllamaHost)
	c.Text.OllamaModel = getEnv("OLLAMA_MODEL", c.Text.OllamaModel)
	c.Text.Temperature = getEnvAsFloat("OLLAMA_TEMPERATURE", c.Text.Temperature)
	c.Text.GroqAPIKey = getEnv("GROQ_API_KEY", c.Text.GroqAPIKey)
	c.Text.GroqModel = getEnv("GROQ_MODEL", c.Text.GroqModel)
	c.Text.Timeout = getEnvAsDuration("TEXT_TIMEOUT", c.Text.Timeout)

	c.Voice.Provider = getEnv("TTS_PROVIDER", c.Voice.Provider)
	c.Voice.Command = getEnv("TTS_COMMAND", c.Voice.Command)
	c.Voice.ElevenLabsAPIKey = getEnv("ELEVENLABS_API_KEY", c.Voice.ElevenLabsAPIKey)
	c.Voice.ElevenLabsVoiceID = getEnv("ELEVENLABS_VOICE_ID", c.Voice.ElevenLabsVoiceID)

	c.Video.Provider = getEnv("VIDEO_API_PROVIDER", c.Video.Provider)
	c.Video.ReplicateAPIToken = getEnv("REPLICATE_API_TOKEN", c.Video.ReplicateAPIToken)
	c.Video.ReplicateModel = getEnv("REPLICATE_MODEL", c.Video.ReplicateModel)
	c.Video.LibraryDir = getEnv("VIDEO_LIBRARY_DIR", c.Video.LibraryDir)

	c.Compose.FFmpegPath = getEnv("FFMPEG_PATH", c.Compose.FFmpegPath)
	c.Compose.BurnSubtitles = getEnvAsBool("BURN_SUBTITLES", c.Compose.BurnSubtitles)

	c.Publish.BlotatoAPIKey = getEnv("BLOTATO_API_KEY", c.Publish.BlotatoAPIKey)
	c.Publish.BlotatoURL = getEnv("BLOTATO_URL", c.Publish.BlotatoURL)
	c.Publish.ToTikTok = getEnvAsBool("PUBLISH_TO_TIKTOK", c.Publish.ToTikTok)
	c.Publish.ToInstagram = getEnvAsBool("PUBLISH_TO_INSTAGRAM", c.Publish.ToInstagram)
	c.Publish.ToYouTube = getEnvAsBool("PUBLISH_TO_YOUTUBE", c.Publish.ToYouTube)
	c.Publish.Title = getEnv("PUBLISH_TITLE", c.Publish.Title)
	c.Publish.RatePerMinute = getEnvAsInt("PUBLISH_RATE_PER_MINUTE", c.Publish.RatePerMinute)
	c.Publish.YouTubeClientID = getEnv("YOUTUBE_CLIENT_ID", c.Publish.YouTubeClientID)
	c.Publish.YouTubeClientSecret = getEnv("YOUTUBE_CLIENT_SECRET", c.Publish.YouTubeClientSecret)
	c.Publish.YouTubeRefreshToken = getEnv("YOUTUBE_REFRESH_TOKEN", c.Publish.YouTubeRefreshToken)

	c.Schedule.Enabled = getEnvAsBool("SCHEDULING_ENABLED", c.Schedule.Enabled)
	c.Schedule.VideosPerDay = getEnvAsInt("VIDEOS_PER_DAY", c.Schedule.VideosPerDay)
	c.Schedule.GenerationHours = getEnvAsStringSlice("GENERATION_HOURS", c.Schedule.GenerationHours)
	c.Schedule.Timezone = getEnv("TIMEZONE", c.Schedule.Timezone)

	c.Defaults.Topic = getEnv("DEFAULT_TOPIC", c.Defaults.Topic)
	c.Defaults.Topics = getEnvAsStringSlice("DEFAULT_TOPICS", c.Defaults.Topics)
	c.Defaults.Duration = getEnvAsInt("DEFAULT_DURATION", c.Defaults.Duration)
	c.Defaults.Style = getEnv("DEFAULT_STYLE", c.Defaults.Style)

	c.Archive.Bucket = getEnv("ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Archive.Endpoint = getEnv("ARCHIVE_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Region = getEnv("ARCHIVE_REGION", c.Archive.Region)
	c.Archive.AccessKey = getEnv("ARCHIVE_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("ARCHIVE_SECRET_KEY", c.Archive.SecretKey)

	c.Topics.Subreddits = getEnvAsStringSlice("TOPIC_SUBREDDITS", c.Topics.Subreddits)

	c.Paths.Output = getEnv("OUTPUT_DIR", c.Paths.Output)
	c.Paths.Logs = getEnv("LOG_DIR", c.Paths.Logs)
	c.Paths.DB = getEnv("DB_PATH", c.Paths.DB)

	c.Features.AutoPublish = getEnvAsBool("AUTO_PUBLISH", c.Features.AutoPublish)
	c.Features.CacheEnabled = getEnvAsBool("CACHE_ENABLED", c.Features.CacheEnabled)
	c.Features.Debug = getEnvAsBool("DEBUG", c.Features.Debug)
	c.Features.ParallelMedia = getEnvAsBool("PARALLEL_MEDIA", c.Features.ParallelMedia)
}

func (c *Config) Validate() error {
	if c.Defaults.Duration <= 0 {
		return errors.New("default duration must be greater than 0")
	}
	if len(c.Defaults.Topics) == 0 {
		return errors.New("at least one default topic is required")
	}
	for _, t := range c.Defaults.Topics {
		if strings.TrimSpace(t) == "" {
			return errors.New("default topics must not be empty")
		}
	}
	for _, h := range c.Schedule.GenerationHours {
		if _, _, err := ParseClock(h); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", c.Schedule.Timezone)
	}
	return nil
}

// Location resolves the schedule timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// ParseClock parses an HH:MM time of day
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("invalid time of day %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, errors.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// Platforms returns the names of platforms enabled by publish_to_* flags
func (c *Config) Platforms() []string {
	var out []string
	if c.Publish.ToTikTok {
		out = append(out, "tiktok")
	}
	if c.Publish.ToInstagram {
		out = append(out, "instagram")
	}
	if c.Publish.ToYouTube {
		out = append(out, "youtube")
	}
	return out
}

// StageDir returns the output directory of one stage role
func (c *Config) StageDir(role string) string {
	return filepath.Join(c.Paths.Output, role)
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
		warnInvalid(key, value, defaultValue, "integer")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
		warnInvalid(key, value, defaultValue, "float")
	}
	return defaultValue
}

// getEnvAsBool treats only "true" (any case) as true, like the .env files it reads
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "duration")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			var out []string
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue interface{}, kind string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warnf("Invalid %s, using default", kind)
}

// DefaultEnv is the environment file written by `shorts init`. Credentials are
// left empty so every stage starts on its local substitute.
func DefaultEnv() map[string]string {
	d := Default()
	return map[string]string{
		"TEXT_PROVIDER":        d.Text.Provider,
		"OLLAMA_HOST":          d.Text.OllamaHost,
		"OLLAMA_MODEL":         d.Text.OllamaModel,
		"OLLAMA_TEMPERATURE":   strconv.FormatFloat(d.Text.Temperature, 'f', -1, 64),
		"GROQ_API_KEY":         "",
		"VIDEO_API_PROVIDER":   d.Video.Provider,
		"REPLICATE_API_TOKEN":  "",
		"TTS_PROVIDER":         d.Voice.Provider,
		"TTS_COMMAND":          "",
		"ELEVENLABS_API_KEY":   "",
		"BLOTATO_API_KEY":      "",
		"PUBLISH_TO_TIKTOK":    strconv.FormatBool(d.Publish.ToTikTok),
		"PUBLISH_TO_INSTAGRAM": strconv.FormatBool(d.Publish.ToInstagram),
		"PUBLISH_TO_YOUTUBE":   strconv.FormatBool(d.Publish.ToYouTube),
		"VIDEOS_PER_DAY":       strconv.Itoa(d.Schedule.VideosPerDay),
		"GENERATION_HOURS":     strings.Join(d.Schedule.GenerationHours, ","),
		"DEFAULT_DURATION":     strconv.Itoa(d.Defaults.Duration),
		"DEFAULT_STYLE":        d.Defaults.Style,
		"DEFAULT_TOPICS":       strings.Join(d.Defaults.Topics, ","),
		"AUTO_PUBLISH":         strconv.FormatBool(d.Features.AutoPublish),
		"CACHE_ENABLED":        strconv.FormatBool(d.Features.CacheEnabled),
		"DEBUG":                strconv.FormatBool(d.Features.Debug),
	}
}
