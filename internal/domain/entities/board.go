package entities

import "time"

// Board is the composed kiosk view for one location
type Board struct {
	LocationID  int              `json:"location_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Departments []DepartmentView `json:"departments"`
	Empty       bool             `json:"empty"`
	Rows        int              `json:"rows"`
}

// DepartmentView is one ranked department on the board
type DepartmentView struct {
	Key            string       `json:"key"`
	Title          string       `json:"title"`
	CheckedInCount int          `json:"checked_in_count"`
	Doctors        []DoctorCard `json:"doctors"`
}

// DoctorCard is the display form of a doctor
type DoctorCard struct {
	ID             DoctorID       `json:"id"`
	Name           string         `json:"name"`
	Category       StatusCategory `json:"category"`
	Color          string         `json:"color"`
	BadgeClass     string         `json:"badge_class"`
	BadgeLabel     string         `json:"badge_label"`
	IsCheckedIn    bool           `json:"is_checked_in"`
	CheckInTime    string         `json:"check_in_time,omitempty"`
	CurrentPatient string         `json:"current_patient,omitempty"`
	Schedule       *Schedule      `json:"schedule,omitempty"`
}

// Schedule is shown for doctors who are not checked in
type Schedule struct {
	WorkingDays  string `json:"working_days,omitempty"`
	WorkingHours string `json:"working_hours,omitempty"`
}

// DoctorCount returns the number of doctor cards on the board
func (b *Board) DoctorCount() int {
	if b == nil {
		return 0
	}
	total := 0
	for _, dept := range b.Departments {
		total += len(dept.Doctors)
	}
	return total
}
