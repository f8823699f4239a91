// Package settings provides the immutable outreach engine configuration
// shared by the attempt tracker, reply monitor, and scheduling validator.
// The value is validated once at startup and injected at call time so tests
// can vary it per scenario.
package settings

import (
	"fmt"
	"os"
	"time"

	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/config"

	"gopkg.in/yaml.v3"
)

// ResponseWindow is the fixed period after an outreach attempt is sent during
// which a reply is expected before the client is considered overdue. It is
// deliberately wall-clock based, independent of the business-day follow-up
// cadence.
const ResponseWindow = 24 * time.Hour

// replyCheckIntervals is the allowed set of reply polling intervals in minutes.
var replyCheckIntervals = map[int]struct{}{
	1: {}, 2: {}, 5: {}, 10: {}, 15: {}, 30: {}, 60: {},
}

// Settings holds the outreach engine configuration. Values are immutable
// after Load.
type Settings struct {
	FollowUp1Days             int `yaml:"followUp1Days"`
	FollowUp2Days             int `yaml:"followUp2Days"`
	AutoCloseDays             int `yaml:"autoCloseDays"`
	OutreachAttemptCount      int `yaml:"outreachAttemptCount"`
	ReplyCheckIntervalMinutes int `yaml:"replyCheckIntervalMinutes"`
	SchedulingLeadDays        int `yaml:"schedulingLeadDays"`
}

// ReplyCheckInterval returns the polling interval as a duration.
func (s Settings) ReplyCheckInterval() time.Duration {
	return time.Duration(s.ReplyCheckIntervalMinutes) * time.Minute
}

// FollowUpDays returns the business-day offset after which the follow-up
// check for the given sent attempt number should fire. The last attempt uses
// the auto-close threshold.
func (s Settings) FollowUpDays(sentAttemptNumber int) int {
	switch {
	case sentAttemptNumber <= 1:
		return s.FollowUp1Days
	case sentAttemptNumber < s.OutreachAttemptCount:
		return s.FollowUp2Days
	default:
		return s.AutoCloseDays
	}
}

// Validate checks every value against its documented range.
func (s Settings) Validate() error {
	if s.FollowUp1Days < 1 {
		return apperr.Configuration(fmt.Sprintf("followUp1Days must be at least 1, got %d", s.FollowUp1Days))
	}
	if s.FollowUp2Days < 1 {
		return apperr.Configuration(fmt.Sprintf("followUp2Days must be at least 1, got %d", s.FollowUp2Days))
	}
	if s.AutoCloseDays < 1 {
		return apperr.Configuration(fmt.Sprintf("autoCloseDays must be at least 1, got %d", s.AutoCloseDays))
	}
	if s.OutreachAttemptCount < 2 || s.OutreachAttemptCount > 10 {
		return apperr.Configuration(fmt.Sprintf("outreachAttemptCount must be between 2 and 10, got %d", s.OutreachAttemptCount))
	}
	if _, ok := replyCheckIntervals[s.ReplyCheckIntervalMinutes]; !ok {
		return apperr.Configuration(fmt.Sprintf("replyCheckIntervalMinutes must be one of 1, 2, 5, 10, 15, 30, 60, got %d", s.ReplyCheckIntervalMinutes))
	}
	if s.SchedulingLeadDays < 0 || s.SchedulingLeadDays > 14 {
		return apperr.Configuration(fmt.Sprintf("schedulingLeadDays must be between 0 and 14, got %d", s.SchedulingLeadDays))
	}
	return nil
}

// Load builds Settings from environment configuration, applies an optional
// YAML overlay file, and validates the result. It fails fast on any value
// outside the documented range.
func Load(cfg config.EngineConfig) (Settings, error) {
	s := Settings{
		FollowUp1Days:             cfg.GetFollowUp1Days(),
		FollowUp2Days:             cfg.GetFollowUp2Days(),
		AutoCloseDays:             cfg.GetAutoCloseDays(),
		OutreachAttemptCount:      cfg.GetOutreachAttemptCount(),
		ReplyCheckIntervalMinutes: cfg.GetReplyCheckIntervalMinutes(),
		SchedulingLeadDays:        cfg.GetSchedulingLeadDays(),
	}

	if file := cfg.GetEngineSettingsFile(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Settings{}, apperr.Wrap(apperr.KindConfiguration, "failed to read engine settings file", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, apperr.Wrap(apperr.KindConfiguration, "failed to parse engine settings file", err)
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
