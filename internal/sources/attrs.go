package sources

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"nexussync/internal/models"
)

// stringAttr reads a non-empty scalar attribute as a string. Integral numbers are
// rendered without a fractional part so numeric ids stay stable.
func stringAttr(image models.Image, key string) (string, bool) {
	if image == nil {
		return "", false
	}
	switch v := image[key].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// stringOr returns the attribute or "" when absent
func stringOr(image models.Image, key string) string {
	v, _ := stringAttr(image, key)
	return v
}

func stringsAttr(image models.Image, key string) []string {
	switch v := image[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

func intAttr(image models.Image, key string) int {
	switch v := image[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e11

// timeAttr resolves the first present timestamp attribute. ISO-8601 strings and epoch
// seconds or milliseconds are accepted.
func timeAttr(image models.Image, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		if t, ok := parseTime(image[key]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC(), true
			}
		}
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			return epochTime(n), true
		}
	case float64:
		return epochTime(val), true
	case int:
		return epochTime(float64(val)), true
	case int64:
		return epochTime(float64(val)), true
	case json.Number:
		if n, err := val.Float64(); err == nil {
			return epochTime(n), true
		}
	}
	return time.Time{}, false
}

func epochTime(n float64) time.Time {
	if n > epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
