// Package interview turns a generation request into a persisted interview:
// validation, prompt construction, question generation, output repair and the
// document store write.
package interview

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Request is a validated-shape generation request. TechStack holds no
// duplicates and no blank entries.
type Request struct {
	Type      string
	Role      string
	Level     string
	TechStack []string
	Amount    int
	OwnerID   string
}

// Validate reports every empty field as a [*ValidationError].
func (r Request) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("type", r.Type)
	check("role", r.Role)
	check("level", r.Level)
	if len(r.TechStack) == 0 {
		missing = append(missing, "techstack")
	}
	if r.Amount <= 0 {
		missing = append(missing, "amount")
	}
	check("ownerId", r.OwnerID)
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// RawRequest is the wire shape of a generation request. techstack may be a
// comma-joined string or an array of strings, amount a number or a numeric
// string, and userid is accepted in place of ownerId.
type RawRequest struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Level     string          `json:"level"`
	TechStack json.RawMessage `json:"techstack"`
	Amount    json.RawMessage `json:"amount"`
	OwnerID   string          `json:"ownerId"`
	UserID    string          `json:"userid"`
}

// Normalize converts r into a [Request] and validates it. Fields that cannot
// be interpreted count as missing.
func (r RawRequest) Normalize() (Request, error) {
	owner := r.OwnerID
	if owner == "" {
		owner = r.UserID
	}
	req := Request{
		Type:      strings.TrimSpace(r.Type),
		Role:      strings.TrimSpace(r.Role),
		Level:     strings.TrimSpace(r.Level),
		TechStack: parseTechStack(r.TechStack),
		Amount:    parseAmount(r.Amount),
		OwnerID:   strings.TrimSpace(owner),
	}
	return req, req.Validate()
}

func parseTechStack(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return NormalizeTechStack(strings.Split(s, ","))
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return NormalizeTechStack(list)
	}
	return nil
}

// NormalizeTechStack trims every entry, drops blanks and removes duplicates,
// keeping first-seen order.
func NormalizeTechStack(items []string) []string {
	var out []string
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func parseAmount(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// JSON numbers such as 5.0 are fine as long as they are whole.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return 0
}
