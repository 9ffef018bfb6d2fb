package model

import (
	"fmt"
	"strings"
)

// EditKind selects how the raw edit value is interpreted.
type EditKind int

const (
	// EditAbsolute sets the target value directly.
	EditAbsolute EditKind = iota
	// EditPercent scales the node's current value by (1 + raw/100).
	EditPercent
)

func (k EditKind) String() string {
	if k == EditPercent {
		return "percent"
	}
	return "absolute"
}

// MarshalText implements encoding.TextMarshaler.
func (k EditKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EditKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEditKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseEditKind accepts "percent"/"%" and "absolute"/"value"/"=".
func ParseEditKind(s string) (EditKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percent", "pct", "%":
		return EditPercent, nil
	case "absolute", "abs", "value", "=", "":
		return EditAbsolute, nil
	}
	return EditAbsolute, fmt.Errorf("unknown edit kind %q (want percent or absolute)", s)
}

// EditRequest is one edit against a published tree.
type EditRequest struct {
	ID   string   `json:"id"`
	Raw  string   `json:"value"`
	Kind EditKind `json:"kind"`
}

// Outcome describes what happened to an edit. Err is nil when Applied.
type Outcome struct {
	Applied bool
	Target  float64 // value requested for the target node before rounding
	Err     error
}

// Reason returns the rejection message, or "" when the edit was applied.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
