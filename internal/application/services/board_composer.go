package services

import (
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BoardComposer turns a roster into the kiosk view model
type BoardComposer struct {
	ranker *DepartmentRankingService
	clock  clockwork.Clock
}

// NewBoardComposer creates a new board composer
func NewBoardComposer(ranker *DepartmentRankingService, clock clockwork.Clock) *BoardComposer {
	if ranker == nil {
		ranker = NewDepartmentRankingService()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BoardComposer{ranker: ranker, clock: clock}
}

// Compose classifies, ranks and lays out a roster. Every department takes one
// row for its header plus one per doctor.
func (c *BoardComposer) Compose(locationID int, roster *entities.Roster) *entities.Board {
	// cases.Caser keeps state between calls and is not safe to share
	caser := cases.Title(language.Und)

	board := &entities.Board{
		LocationID:  locationID,
		GeneratedAt: c.clock.Now(),
		Departments: []entities.DepartmentView{},
		Empty:       roster.IsEmpty(),
	}

	for _, dept := range c.ranker.Rank(roster) {
		view := entities.DepartmentView{
			Key:            dept.Key,
			Title:          departmentTitle(caser, dept.Key),
			CheckedInCount: dept.CheckedInCount,
			Doctors:        make([]entities.DoctorCard, 0, len(dept.Doctors)),
		}
		for _, doctor := range dept.Doctors {
			view.Doctors = append(view.Doctors, composeCard(caser, doctor))
		}
		board.Departments = append(board.Departments, view)
		board.Rows += 1 + len(view.Doctors)
	}

	return board
}

func composeCard(caser cases.Caser, doctor entities.Doctor) entities.DoctorCard {
	category := doctor.Category()
	style := entities.StatusStyleFor(category)

	card := entities.DoctorCard{
		ID:             doctor.ID,
		Name:           caser.String(strings.Join(strings.Fields(doctor.Name), " ")),
		Category:       category,
		Color:          style.Color,
		BadgeClass:     style.BadgeClass,
		BadgeLabel:     entities.BadgeLabel(doctor.Status),
		IsCheckedIn:    doctor.IsCheckedIn,
		CheckInTime:    doctor.VisibleCheckInTime(),
		CurrentPatient: doctor.VisiblePatient(),
	}

	if !doctor.IsCheckedIn {
		schedule := entities.Schedule{
			WorkingDays:  trimmed(doctor.WorkingDays),
			WorkingHours: trimmed(doctor.WorkingHours),
		}
		if schedule.WorkingDays != "" || schedule.WorkingHours != "" {
			card.Schedule = &schedule
		}
	}

	return card
}

func departmentTitle(caser cases.Caser, key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return caser.String(strings.Join(words, " "))
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
