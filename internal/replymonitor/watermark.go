package replymonitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	watermarkKeyFmt = "replymonitor:watermark:%s"
	seenKeyFmt      = "replymonitor:seen:%s"
	lastCheckedKey  = "replymonitor:last_checked"
	lastErrorKey    = "replymonitor:last_error"

	// Seen sets only need to cover the date granularity of IMAP SINCE;
	// anything older is excluded by the watermark alone.
	seenTTL = 14 * 24 * time.Hour
)

// WatermarkStore persists per-client detection state in Redis: a time
// watermark, a set of seen message IDs, and global monitor health fields.
type WatermarkStore struct {
	rdb *redis.Client
}

// NewWatermarkStore creates a new watermark store
func NewWatermarkStore(rdb *redis.Client) *WatermarkStore {
	return &WatermarkStore{rdb: rdb}
}

// Watermark returns the newest processed message time for the client, or
// the zero time when the client has never been scanned.
func (s *WatermarkStore) Watermark(ctx context.Context, clientID uuid.UUID) (time.Time, error) {
	val, err := s.rdb.Get(ctx, fmt.Sprintf(watermarkKeyFmt, clientID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark for client %s: %w", clientID, err)
	}
	return t, nil
}

// AdvanceWatermark moves the client's watermark forward. Moving it backward
// is a no-op so out-of-order processing cannot reopen a window.
func (s *WatermarkStore) AdvanceWatermark(ctx context.Context, clientID uuid.UUID, to time.Time) error {
	current, err := s.Watermark(ctx, clientID)
	if err != nil {
		return err
	}
	if !to.After(current) {
		return nil
	}

	key := fmt.Sprintf(watermarkKeyFmt, clientID)
	if err := s.rdb.Set(ctx, key, to.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}

// MarkSeen records a message ID for the client. Returns true if the message
// was not seen before, making this the exactly-once gate for emission.
func (s *WatermarkStore) MarkSeen(ctx context.Context, clientID uuid.UUID, messageID string) (bool, error) {
	key := fmt.Sprintf(seenKeyFmt, clientID)
	added, err := s.rdb.SAdd(ctx, key, messageID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message seen: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, seenTTL).Err(); err != nil {
		return false, fmt.Errorf("failed to refresh seen TTL: %w", err)
	}
	return added == 1, nil
}

// SetChecked records a successful poll cycle and clears any stored error.
func (s *WatermarkStore) SetChecked(ctx context.Context, at time.Time) error {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, lastCheckedKey, at.UTC().Format(time.RFC3339Nano), 0)
	pipe.Del(ctx, lastErrorKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record check time: %w", err)
	}
	return nil
}

// SetError records a failed poll cycle. The next successful cycle clears it.
func (s *WatermarkStore) SetError(ctx context.Context, message string) error {
	if err := s.rdb.Set(ctx, lastErrorKey, message, 0).Err(); err != nil {
		return fmt.Errorf("failed to record monitor error: %w", err)
	}
	return nil
}

// MonitorStatus is the monitor's health snapshot.
type MonitorStatus struct {
	LastChecked *time.Time `json:"lastChecked,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// Status reads the monitor's health snapshot.
func (s *WatermarkStore) Status(ctx context.Context) (MonitorStatus, error) {
	var status MonitorStatus

	checked, err := s.rdb.Get(ctx, lastCheckedKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return status, fmt.Errorf("failed to read check time: %w", err)
	}
	if checked != "" {
		if t, parseErr := time.Parse(time.RFC3339Nano, checked); parseErr == nil {
			status.LastChecked = &t
		}
	}

	lastErr, err := s.rdb.Get(ctx, lastErrorKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return status, fmt.Errorf("failed to read monitor error: %w", err)
	}
	status.LastError = lastErr

	return status, nil
}
