// Package sentinel scans agent output for the RESULT: sentinel line, the
// stable contract between the runner and the agent subprocess (spec §6).
package sentinel

import (
	"encoding/json"
	"strings"
)

// Validation is the closed set a parsed result's validation field is
// coerced into; it is never a free string.
type Validation string

const (
	ValidationPass    Validation = "pass"
	ValidationFail    Validation = "fail"
	ValidationUnknown Validation = "unknown"
)

func (v Validation) isKnown() bool {
	switch v {
	case ValidationPass, ValidationFail, ValidationUnknown:
		return true
	default:
		return false
	}
}

// Status is the closed set a parsed result's status field must land in
// for the line to be considered a valid sentinel at all.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// ParsedResult is the decoded, normalized sentinel payload.
type ParsedResult struct {
	Status     Status
	Validation Validation
	Summary    string
	Raw        string
}

const prefix = "RESULT:"

// Extract scans buffer from the last line to the first, looking for a
// line containing the literal RESULT: prefix followed by a JSON object
// whose status lowercases to done or failed. The last such line scanning
// backward — i.e. the first one encountered in this backward scan — wins.
// Returns nil if no line yields a valid result.
func Extract(buffer string) *ParsedResult {
	lines := strings.Split(buffer, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if result := tryParseLine(lines[i]); result != nil {
			return result
		}
	}
	return nil
}

func tryParseLine(line string) *ParsedResult {
	idx := strings.Index(line, prefix)
	if idx == -1 {
		return nil
	}
	payload := strings.TrimSpace(line[idx+len(prefix):])

	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}
	candidate := payload[start : end+1]

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	statusRaw, ok := raw["status"].(string)
	if !ok {
		return nil
	}
	status := Status(strings.ToLower(statusRaw))
	if status != StatusDone && status != StatusFailed {
		return nil
	}

	validation := ValidationUnknown
	if v, ok := raw["validation"].(string); ok {
		candidateValidation := Validation(strings.ToLower(v))
		if candidateValidation.isKnown() {
			validation = candidateValidation
		}
	}

	summary := ""
	if s, ok := raw["summary"].(string); ok {
		summary = strings.TrimSpace(s)
	}

	return &ParsedResult{
		Status:     status,
		Validation: validation,
		Summary:    summary,
		Raw:        candidate,
	}
}
