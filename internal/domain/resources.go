package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AvailableResources describes what a compute node is offering to a claim
// request (spec.md §4.2.2).
type AvailableResources struct {
	NumCPUs   int
	MemoryGB  float64
	NumGPUs   int
	NumNodes  int
}

// Fits reports whether req's requirements are satisfiable within avail.
func (avail AvailableResources) Fits(req ResourceRequirements) (bool, error) {
	memGB, err := ParseMemoryGB(req.Memory)
	if err != nil {
		return false, err
	}
	if req.NumCPUs > avail.NumCPUs {
		return false, nil
	}
	if req.NumGPUs > avail.NumGPUs {
		return false, nil
	}
	if req.NumNodes > avail.NumNodes {
		return false, nil
	}
	if memGB > avail.MemoryGB {
		return false, nil
	}
	return true, nil
}

// Subtract returns avail with req's requirements deducted. Caller must have
// already confirmed Fits.
func (avail AvailableResources) Subtract(req ResourceRequirements) AvailableResources {
	memGB, _ := ParseMemoryGB(req.Memory)
	return AvailableResources{
		NumCPUs:  avail.NumCPUs - req.NumCPUs,
		MemoryGB: avail.MemoryGB - memGB,
		NumGPUs:  avail.NumGPUs - req.NumGPUs,
		NumNodes: avail.NumNodes - req.NumNodes,
	}
}

// ParseMemoryGB parses a memory string like "4GB", "512MB", "2TB", "1024"
// (bytes assumed when no unit is given) into gigabytes.
func ParseMemoryGB(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	upper := strings.ToUpper(s)
	units := []struct {
		suffix string
		toGB   float64
	}{
		{"TB", 1024},
		{"GB", 1},
		{"MB", 1.0 / 1024},
		{"KB", 1.0 / (1024 * 1024)},
		{"T", 1024},
		{"G", 1},
		{"M", 1.0 / 1024},
		{"K", 1.0 / (1024 * 1024)},
		{"B", 1.0 / (1024 * 1024 * 1024)},
	}
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSpace(upper[:len(upper)-len(u.suffix)])
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("parse memory %q: %w", s, err)
			}
			return n * u.toGB, nil
		}
	}
	// No recognized unit: treat as raw bytes.
	n, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("parse memory %q: unrecognized unit", s)
	}
	return n / (1024 * 1024 * 1024), nil
}

// ParseISO8601Duration parses the PnDTnHnMnS subset ISO 8601 emits for HPC
// walltimes (no calendar-month/year terms).
func ParseISO8601Duration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q: must start with P", s)
	}
	rest := s[1:]
	var days, hours, mins float64
	var secs float64
	datePart, timePart, hasTime := strings.Cut(rest, "T")
	if d, ok := extractUnit(datePart, "D"); ok {
		days = d
	}
	if hasTime {
		if h, ok := extractUnit(timePart, "H"); ok {
			hours = h
		}
		if m, ok := extractUnit(timePart, "M"); ok {
			mins = m
		}
		if sec, ok := extractUnit(timePart, "S"); ok {
			secs = sec
		}
	}
	total := time.Duration(days*24*float64(time.Hour)) +
		time.Duration(hours*float64(time.Hour)) +
		time.Duration(mins*float64(time.Minute)) +
		time.Duration(secs*float64(time.Second))
	return total, nil
}

func extractUnit(s, unit string) (float64, bool) {
	idx := strings.Index(s, unit)
	if idx < 0 {
		return 0, false
	}
	// scan backwards from idx for the numeric run
	start := idx
	for start > 0 && (isDigit(s[start-1]) || s[start-1] == '.') {
		start--
	}
	if start == idx {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[start:idx], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
