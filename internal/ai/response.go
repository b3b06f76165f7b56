package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const fence = "```"

// ErrNoJSONBlock is returned when model output carries no recognizable JSON payload.
var ErrNoJSONBlock = errors.New("no JSON block found in response")

// ExtractJSON locates the JSON payload in model output. A ```json fenced
// block is preferred, then any fenced block, then a bare object or array.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, fence+"json"); idx != -1 {
		return fenced(s[idx+len(fence+"json"):])
	}

	if idx := strings.Index(s, fence); idx != -1 {
		body := s[idx+len(fence):]
		// drop a language tag such as ```JSON
		if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
		return fenced(body)
	}

	if isBare(s) {
		return s, nil
	}

	return "", ErrNoJSONBlock
}

func fenced(body string) (string, error) {
	end := strings.Index(body, fence)
	if end == -1 {
		return "", ErrNoJSONBlock
	}

	payload := strings.TrimSpace(body[:end])
	if payload == "" {
		return "", ErrNoJSONBlock
	}

	return payload, nil
}

func isBare(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

// CoerceFloat reads a number out of a decoded JSON value. Numeric strings are
// accepted; anything else yields NaN.
func CoerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// CoerceString renders a decoded JSON value as a trimmed string.
func CoerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// CoerceStrings turns a string or a list of values into a list of non-empty
// strings.
func CoerceStrings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return nil
	case []string:
		return CoerceStrings(toAny(val))
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := CoerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := CoerceString(val); s != "" {
			return []string{s}
		}
		return nil
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
