package settings

import (
	"testing"
	"time"

	"intake_portal_backend/platform/apperr"
)

func validSettings() Settings {
	return Settings{
		FollowUp1Days:             2,
		FollowUp2Days:             4,
		AutoCloseDays:             7,
		OutreachAttemptCount:      3,
		ReplyCheckIntervalMinutes: 5,
		SchedulingLeadDays:        1,
	}
}

func TestValidate_AcceptsDocumentedRanges(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
}

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"attempt count below minimum", func(s *Settings) { s.OutreachAttemptCount = 1 }},
		{"attempt count above maximum", func(s *Settings) { s.OutreachAttemptCount = 11 }},
		{"interval not in enum", func(s *Settings) { s.ReplyCheckIntervalMinutes = 7 }},
		{"interval zero", func(s *Settings) { s.ReplyCheckIntervalMinutes = 0 }},
		{"negative lead days", func(s *Settings) { s.SchedulingLeadDays = -1 }},
		{"lead days above maximum", func(s *Settings) { s.SchedulingLeadDays = 15 }},
		{"followUp1Days zero", func(s *Settings) { s.FollowUp1Days = 0 }},
		{"autoCloseDays zero", func(s *Settings) { s.AutoCloseDays = 0 }},
	}

	for _, tc := range tests {
		s := validSettings()
		tc.mutate(&s)
		err := s.Validate()
		if err == nil {
			t.Errorf("%s: expected configuration error, got nil", tc.name)
			continue
		}
		if !apperr.Is(err, apperr.KindConfiguration) {
			t.Errorf("%s: expected KindConfiguration, got %v", tc.name, err)
		}
	}
}

func TestValidate_AcceptsEveryAllowedInterval(t *testing.T) {
	for _, interval := range []int{1, 2, 5, 10, 15, 30, 60} {
		s := validSettings()
		s.ReplyCheckIntervalMinutes = interval
		if err := s.Validate(); err != nil {
			t.Errorf("interval %d rejected: %v", interval, err)
		}
	}
}

func TestFollowUpDays_CadencePerAttempt(t *testing.T) {
	s := validSettings()

	if got := s.FollowUpDays(1); got != 2 {
		t.Errorf("after attempt 1: got %d business days, want 2", got)
	}
	if got := s.FollowUpDays(2); got != 4 {
		t.Errorf("after attempt 2: got %d business days, want 4", got)
	}
	// The final attempt is followed by the auto-close window.
	if got := s.FollowUpDays(3); got != 7 {
		t.Errorf("after final attempt: got %d business days, want 7", got)
	}
}

func TestReplyCheckInterval(t *testing.T) {
	s := validSettings()
	if got := s.ReplyCheckInterval(); got != 5*time.Minute {
		t.Fatalf("ReplyCheckInterval = %v, want 5m", got)
	}
}
