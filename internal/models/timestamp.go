package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayouts are the zone-less forms the backend writes for datetimes
// stored without tz info. Fractional seconds are accepted after the
// seconds field even though the layouts do not name them.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp decodes RFC 3339 datetimes as well as naive ISO datetimes,
// which are taken to be UTC. null and "" decode to the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses s as RFC 3339, falling back to the naive layouts
// in UTC. An empty string is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unsupported format %q", s)
}

// UnmarshalJSON accepts naive createdAt values.
func (t *Ticket) UnmarshalJSON(b []byte) error {
	type plain Ticket
	aux := struct {
		*plain
		CreatedAt Timestamp `json:"createdAt"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.CreatedAt = aux.CreatedAt.Time
	return nil
}

// UnmarshalJSON accepts naive upload_date values.
func (d *Document) UnmarshalJSON(b []byte) error {
	type plain Document
	aux := struct {
		*plain
		UploadDate Timestamp `json:"upload_date"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.UploadDate = aux.UploadDate.Time
	return nil
}

// UnmarshalJSON accepts naive upload_date values.
func (r *UploadResult) UnmarshalJSON(b []byte) error {
	type plain UploadResult
	aux := struct {
		*plain
		UploadDate Timestamp `json:"upload_date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.UploadDate = aux.UploadDate.Time
	return nil
}

// UnmarshalJSON accepts naive timestamp values.
func (a *Activity) UnmarshalJSON(b []byte) error {
	type plain Activity
	aux := struct {
		*plain
		Timestamp Timestamp `json:"timestamp"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.Timestamp = aux.Timestamp.Time
	return nil
}
