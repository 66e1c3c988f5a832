package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DoctorID identifies a doctor across polls. Upstream systems send it either
// as a JSON number or a JSON string.
type DoctorID string

// UnmarshalJSON accepts both numeric and string identifiers
func (id *DoctorID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DoctorID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("doctor id must be a string or number: %w", err)
	}
	*id = DoctorID(n.String())
	return nil
}

// Doctor represents one practitioner's live state as delivered by the roster source
type Doctor struct {
	ID             DoctorID `json:"id"`
	Name           string   `json:"name"`
	Department     string   `json:"department"`
	Status         string   `json:"status"`
	IsCheckedIn    bool     `json:"isCheckedIn"`
	CheckInTime    *string  `json:"checkInTime,omitempty"`
	CurrentPatient *string  `json:"currentPatient,omitempty"`
	WorkingDays    *string  `json:"working_days,omitempty"`
	WorkingHours   *string  `json:"working_hours,omitempty"`
}

// Category classifies the doctor's raw status
func (d Doctor) Category() StatusCategory {
	return ClassifyStatus(d.Status)
}

// VisiblePatient returns the patient currently being served, or "" when the
// doctor is idle or not checked in.
func (d Doctor) VisiblePatient() string {
	if !d.IsCheckedIn || d.CurrentPatient == nil {
		return ""
	}
	return strings.TrimSpace(*d.CurrentPatient)
}

// VisibleCheckInTime returns the check-in time only while the doctor is checked in
func (d Doctor) VisibleCheckInTime() string {
	if !d.IsCheckedIn || d.CheckInTime == nil {
		return ""
	}
	return strings.TrimSpace(*d.CheckInTime)
}
