package services

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date format")

var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	time.RFC3339,
}

// FormatDate rewrites a date to the 8-digit YYYYMMDD form the pricing service expects.
func FormatDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102"), nil
		}
	}
	return "", ErrInvalidDate
}

// lookup walks a decoded JSON object along path.
func lookup(payload map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = payload
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// numberAt returns the number at path. Missing, null, non-numeric and
// non-finite values read as 0; numeric strings are parsed.
func numberAt(payload map[string]interface{}, path ...string) float64 {
	v, ok := lookup(payload, path...)
	if !ok {
		return 0
	}
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// stringAt returns the string at path, or "".
func stringAt(payload map[string]interface{}, path ...string) string {
	v, ok := lookup(payload, path...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}
