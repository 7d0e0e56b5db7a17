package mcp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// arguments returns the tool call arguments; a call without arguments
// yields an empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, invalidParam("arguments", "must be an object")
	}
	return args, nil
}

// getInt64 extracts an integer parameter. JSON numbers arrive as float64;
// numeric strings are accepted too.
func getInt64(args map[string]interface{}, key string) (int64, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, true, invalidParam(key, "must be an integer")
		}
		if v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, true, invalidParam(key, "out of range")
		}
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, true, invalidParam(key, "must be an integer")
		}
		return n, true, nil
	}
	return 0, true, invalidParam(key, "must be an integer")
}

// requireID extracts a required positive identifier
func requireID(args map[string]interface{}, key string) (int64, error) {
	id, ok, err := getInt64(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalidParam(key, "missing")
	}
	if id <= 0 {
		return 0, invalidParam(key, "must be a positive integer")
	}
	return id, nil
}

// optionalID extracts an optional positive identifier
func optionalID(args map[string]interface{}, key string) (*int64, error) {
	id, ok, err := getInt64(args, key)
	if err != nil || !ok {
		return nil, err
	}
	if id <= 0 {
		return nil, invalidParam(key, "must be a positive integer")
	}
	return &id, nil
}

// requireInt extracts a required integer; range checks belong to the core
func requireInt(args map[string]interface{}, key string) (int, error) {
	n, ok, err := getInt64(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalidParam(key, "missing")
	}
	return int(n), nil
}

// getIntDefault extracts an optional integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	n, ok, err := getInt64(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultValue, nil
	}
	return int(n), nil
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	val, ok := raw.(bool)
	if !ok {
		return false, invalidParam(key, "must be a boolean")
	}
	return val, nil
}

// optionalString returns a pointer to a string parameter when present
func optionalString(args map[string]interface{}, key string) (*string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	val, ok := raw.(string)
	if !ok {
		return nil, invalidParam(key, "must be a string")
	}
	return &val, nil
}

// requireString extracts a required non-blank string
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", invalidParam(key, "missing or empty")
	}
	return val, nil
}

// getDecimal extracts a money amount given as a JSON number or a decimal
// string. Strings are preferred since they keep exact cents.
func getDecimal(args map[string]interface{}, key string) (decimal.Decimal, bool, error) {
	switch v := args[key].(type) {
	case nil:
		return decimal.Zero, false, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, true, invalidParam(key, "must be a decimal number")
		}
		return d, true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	}
	return decimal.Zero, true, invalidParam(key, "must be a decimal number")
}

// getTime extracts an RFC 3339 timestamp or a YYYY-MM-DD date. A date-only
// value is the start of that day in UTC, or its last instant when endOfDay
// is set.
func getTime(args map[string]interface{}, key string, endOfDay bool) (*time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		if _, present := args[key]; present && !ok {
			return nil, invalidParam(key, "must be a string")
		}
		return nil, nil
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidParam(key, fmt.Sprintf("expected RFC 3339 timestamp or %s date", dateLayout))
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
