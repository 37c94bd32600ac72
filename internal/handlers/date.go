package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var errInvalidDate = errors.New("invalid date")

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

const (
	minDateYear = 0
	maxDateYear = 9999
)

// Date is a request timestamp. It accepts RFC 3339 strings, zone-less
// date-times and plain dates (both read as UTC), or a number of Unix
// milliseconds. Decoded values are stored in UTC and must fall within
// years 0 through 9999, the range a JSON timestamp can be written back in.
//
// Set reports whether a value was supplied; null and "" leave it false.
type Date struct {
	time.Time
	Set bool
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return errInvalidDate
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		parsed, err := parseDate(raw)
		if err != nil {
			return err
		}
		return d.set(parsed)
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return errInvalidDate
	}
	return d.set(time.UnixMilli(millis))
}

func (d *Date) set(t time.Time) error {
	t = t.UTC()
	if year := t.Year(); year < minDateYear || year > maxDateYear {
		return errInvalidDate
	}
	d.Time = t
	d.Set = true
	return nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errInvalidDate
}
