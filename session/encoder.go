package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sikad/api"
)

const (
	recordVersionCurrent = 1
	// recordVersionLegacy is the bare profile object written by older clients.
	recordVersionLegacy = 0
)

// ErrCorruptRecord is returned when a persisted profile record cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt profile record")

type profileRecord struct {
	Version    int         `json:"v"`
	Profile    api.Profile `json:"profile"`
	VerifiedAt int64       `json:"verified_at,omitempty"`
}

// EncodeProfile renders the persisted profile record.
func EncodeProfile(p api.Profile, verifiedAt time.Time) (string, error) {
	rec := profileRecord{Version: recordVersionCurrent, Profile: p}
	if !verifiedAt.IsZero() {
		rec.VerifiedAt = verifiedAt.Unix()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode profile record: %w", err)
	}
	return string(data), nil
}

// DecodeProfile reads a record written by [EncodeProfile] or a legacy bare profile.
func DecodeProfile(raw string) (api.Profile, time.Time, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return api.Profile{}, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	version := recordVersionLegacy
	if v, ok := fields["v"]; ok {
		if _, hasProfile := fields["profile"]; hasProfile {
			if err := json.Unmarshal(v, &version); err != nil {
				return api.Profile{}, time.Time{}, fmt.Errorf("%w: bad version", ErrCorruptRecord)
			}
		}
	}

	switch version {
	case recordVersionLegacy:
		var p api.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return api.Profile{}, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		return p, time.Time{}, nil
	case recordVersionCurrent:
		var rec profileRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return api.Profile{}, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		var at time.Time
		if rec.VerifiedAt > 0 {
			at = time.Unix(rec.VerifiedAt, 0)
		}
		return rec.Profile, at, nil
	default:
		return api.Profile{}, time.Time{}, fmt.Errorf("%w: unsupported profile record version %d", ErrCorruptRecord, version)
	}
}
