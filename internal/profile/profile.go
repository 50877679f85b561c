package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the state directory (processed-event store, demo fixtures)
	Data string
	// Version is the current build version
	Version string

	// ViewerZone is the requester's timezone for dual-stamped output.
	ViewerZone string // SLOTWISE_VIEWER_ZONE (default: UTC)
	// ICSFeedURL points busy queries at an iCalendar feed. Empty keeps
	// the in-memory calendar.
	ICSFeedURL string // SLOTWISE_ICS_URL
	// MonitorCron is the monitor's check schedule.
	MonitorCron string // SLOTWISE_MONITOR_CRON (default: @every 1h)
	// MonitorLookaheadDays is how far ahead the monitor scans.
	MonitorLookaheadDays int // SLOTWISE_MONITOR_LOOKAHEAD_DAYS (default: 30)

	// AI configuration
	AIEnabled bool   // SLOTWISE_AI_ENABLED
	AIAPIKey  string // SLOTWISE_AI_API_KEY
	AIBaseURL string // SLOTWISE_AI_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIModel   string // SLOTWISE_AI_MODEL (default: Qwen/Qwen2.5-7B-Instruct)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the LLM paths (timezone lookup, request
// parsing) should be active.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// StateFile is where the monitor persists its processed-event set.
func (p *Profile) StateFile() string {
	return filepath.Join(p.Data, "processed_events.json")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from SLOTWISE_* environment variables.
func (p *Profile) FromEnv() {
	p.ViewerZone = getEnvOrDefault("SLOTWISE_VIEWER_ZONE", "UTC")
	p.ICSFeedURL = os.Getenv("SLOTWISE_ICS_URL")
	p.MonitorCron = getEnvOrDefault("SLOTWISE_MONITOR_CRON", "@every 1h")
	p.MonitorLookaheadDays = 30

	p.AIEnabled = os.Getenv("SLOTWISE_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("SLOTWISE_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("SLOTWISE_AI_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIModel = getEnvOrDefault("SLOTWISE_AI_MODEL", "Qwen/Qwen2.5-7B-Instruct")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		if p.Mode == "prod" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "slotwise")
			} else {
				p.Data = "/var/opt/slotwise"
			}
		} else {
			p.Data = "."
		}
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	return nil
}
