package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL            string
	LineChannelSecret      string
	LineChannelAccessToken string
	HTTPAddr               string
	LogLevel               string
	Environment            string
	LessonWeekdays         []time.Weekday
	SessionTTL             time.Duration
	CronSpecReminder       string
	ReminderEnabled        bool
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	// The channel secret/token may be left empty in local development; the
	// webhook then skips signature validation and replies are not sent.
	cfg.LineChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	cfg.LineChannelAccessToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	weekdaysStr := strings.ToLower(os.Getenv("LESSON_WEEKDAYS"))
	if weekdaysStr == "" {
		weekdaysStr = "saturday" // Lessons are on Saturdays by default
	}
	for _, name := range strings.Split(weekdaysStr, ",") {
		name = strings.TrimSpace(name)
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("invalid LESSON_WEEKDAYS entry: %q", name)
		}
		cfg.LessonWeekdays = append(cfg.LessonWeekdays, wd)
	}

	ttlStr := os.Getenv("SESSION_TTL_HOURS")
	if ttlStr == "" {
		cfg.SessionTTL = 48 * time.Hour
	} else {
		hours, err := strconv.Atoi(ttlStr)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %q", ttlStr)
		}
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}

	cfg.CronSpecReminder = os.Getenv("CRON_SPEC_REMINDER")
	if cfg.CronSpecReminder == "" {
		cfg.CronSpecReminder = "0 9 * * *" // Default: 9 AM daily
	}

	reminderStr := os.Getenv("REMINDER_ENABLED")
	if reminderStr == "" {
		cfg.ReminderEnabled = true
	} else {
		enabled, err := strconv.ParseBool(reminderStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_ENABLED: %q", reminderStr)
		}
		cfg.ReminderEnabled = enabled
	}

	return cfg, nil
}
