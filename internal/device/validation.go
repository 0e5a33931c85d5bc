package device

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// maxStringValueLen is the longest string or message value the device
// service stores.
const maxStringValueLen = 1024

// NormalizeValue converts v to the JSON type a property of baseType carries.
//
// Conversions:
//   - boolean: bool, 0/1 numbers and "true"/"false"/"1"/"0" become 0 or 1
//   - integer: whole numbers and numeric strings become int64
//   - decimal: numbers and numeric strings become float64
//   - string, message: strings pass through, other scalars are formatted
//   - file: rejected, blobs go through UploadBlob
//
// Returns:
//   - any: The value to send in a datapoint body
//   - error: InvalidArgument when v does not fit baseType
func NormalizeValue(baseType BaseType, v any) (any, error) {
	if v == nil {
		return nil, cloud.InvalidArgument("datapoint value is required")
	}
	if n, ok := v.(json.Number); ok {
		v = string(n)
	}

	switch baseType {
	case BaseTypeBoolean:
		return normalizeBool(v)
	case BaseTypeInteger:
		return normalizeInt(v)
	case BaseTypeDecimal:
		return normalizeDecimal(v)
	case BaseTypeString, BaseTypeMessage:
		s := formatScalar(v)
		if len(s) > maxStringValueLen {
			return nil, cloud.InvalidArgument("%s value longer than %d characters", baseType, maxStringValueLen)
		}
		return s, nil
	case BaseTypeFile:
		return nil, cloud.InvalidArgument("file properties take blob uploads, not values")
	default:
		return nil, cloud.InvalidArgument("unknown base type %q", baseType)
	}
}

func normalizeBool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "on":
			return 1, nil
		case "0", "false", "off":
			return 0, nil
		}
	default:
		if f, ok := toFloat(v); ok && (f == 0 || f == 1) {
			return int(f), nil
		}
	}
	return nil, cloud.InvalidArgument("boolean value must be 0 or 1, got %v", v)
}

func normalizeInt(v any) (any, error) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, cloud.InvalidArgument("integer value %q: %v", s, err)
		}
		return n, nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, cloud.InvalidArgument("integer value must be a whole number, got %v", v)
	}
	return int64(f), nil
}

func normalizeDecimal(v any) (any, error) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, cloud.InvalidArgument("decimal value %q: %v", s, err)
		}
		return f, nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, cloud.InvalidArgument("decimal value must be a number, got %v", v)
	}
	return f, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ValidateDSN rejects empty device serial numbers.
func ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return cloud.InvalidArgument("device DSN is required")
	}
	return nil
}
