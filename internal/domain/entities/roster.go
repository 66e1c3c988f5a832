package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Department is one group of the roster: a department key and its doctors in
// delivered order.
type Department struct {
	Key     string   `json:"key"`
	Doctors []Doctor `json:"doctors"`
}

// CheckedInCount returns the number of doctors currently on duty
func (d Department) CheckedInCount() int {
	count := 0
	for _, doctor := range d.Doctors {
		if doctor.IsCheckedIn {
			count++
		}
	}
	return count
}

// Roster is the department -> doctors mapping returned by one fetch.
//
// It is encoded as a JSON object. Unlike a Go map it keeps the key order of
// the delivered object, which the department ranking uses as its tie-break.
type Roster struct {
	Departments []Department
}

// EmptyRoster returns the roster substituted when a fetch fails
func EmptyRoster() *Roster {
	return &Roster{Departments: []Department{}}
}

// IsEmpty reports whether the roster has no departments
func (r *Roster) IsEmpty() bool {
	return r == nil || len(r.Departments) == 0
}

// DoctorCount returns the total number of doctors across departments
func (r *Roster) DoctorCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, dept := range r.Departments {
		total += len(dept.Doctors)
	}
	return total
}

// UnmarshalJSON decodes a JSON object while preserving key order. A repeated
// key replaces the earlier group in place.
func (r *Roster) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	if tok == nil {
		r.Departments = []Department{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("roster: expected object, got %v", tok)
	}

	departments := make([]Department, 0)
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("roster: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("roster: unexpected key %v", keyTok)
		}

		var doctors []Doctor
		if err := dec.Decode(&doctors); err != nil {
			return fmt.Errorf("roster: department %q: %w", key, err)
		}
		if doctors == nil {
			doctors = []Doctor{}
		}

		if i, seen := index[key]; seen {
			departments[i].Doctors = doctors
			continue
		}
		index[key] = len(departments)
		departments = append(departments, Department{Key: key, Doctors: doctors})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("roster: %w", err)
	}

	r.Departments = departments
	return nil
}

// MarshalJSON encodes the roster as a JSON object in department order
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dept := range r.Departments {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(dept.Key)
		if err != nil {
			return nil, err
		}
		doctors := dept.Doctors
		if doctors == nil {
			doctors = []Doctor{}
		}
		value, err := json.Marshal(doctors)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
