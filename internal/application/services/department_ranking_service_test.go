package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/queueboard/internal/domain/entities"
)

func doctors(checkedIn ...bool) []entities.Doctor {
	out := make([]entities.Doctor, 0, len(checkedIn))
	for _, in := range checkedIn {
		out = append(out, entities.Doctor{IsCheckedIn: in})
	}
	return out
}

func keys(ranked []RankedDepartment) []string {
	out := make([]string, 0, len(ranked))
	for _, dept := range ranked {
		out = append(out, dept.Key)
	}
	return out
}

func TestRank_OrdersByCheckedInDescending(t *testing.T) {
	svc := NewDepartmentRankingService()
	roster := &entities.Roster{Departments: []entities.Department{
		{Key: "A", Doctors: doctors(true, true, false)},
		{Key: "B", Doctors: doctors(false)},
		{Key: "C", Doctors: doctors(true, true, true)},
	}}

	ranked := svc.Rank(roster)

	assert.Equal(t, []string{"C", "A", "B"}, keys(ranked))
	assert.Equal(t, 3, ranked[0].CheckedInCount)
	assert.Equal(t, 2, ranked[1].CheckedInCount)
	assert.Equal(t, 0, ranked[2].CheckedInCount)
}

func TestRank_StableForEqualCounts(t *testing.T) {
	svc := NewDepartmentRankingService()
	roster := &entities.Roster{Departments: []entities.Department{
		{Key: "x", Doctors: doctors(true)},
		{Key: "y", Doctors: doctors(false, false)},
		{Key: "z", Doctors: doctors(true, false)},
		{Key: "w", Doctors: doctors()},
	}}

	ranked := svc.Rank(roster)

	assert.Equal(t, []string{"x", "z", "y", "w"}, keys(ranked))
}

func TestRank_LeavesDoctorOrderAndInputUntouched(t *testing.T) {
	svc := NewDepartmentRankingService()
	roster := &entities.Roster{Departments: []entities.Department{
		{Key: "low", Doctors: doctors(false)},
		{Key: "high", Doctors: []entities.Doctor{
			{ID: "3", IsCheckedIn: false},
			{ID: "1", IsCheckedIn: true},
			{ID: "2", IsCheckedIn: true},
		}},
	}}

	ranked := svc.Rank(roster)

	assert.Equal(t, []string{"high", "low"}, keys(ranked))
	assert.Equal(t, entities.DoctorID("3"), ranked[0].Doctors[0].ID)
	assert.Equal(t, entities.DoctorID("1"), ranked[0].Doctors[1].ID)
	assert.Equal(t, "low", roster.Departments[0].Key, "input roster must not be reordered")
}

func TestRank_EmptyRoster(t *testing.T) {
	svc := NewDepartmentRankingService()
	assert.Empty(t, svc.Rank(entities.EmptyRoster()))
	assert.Empty(t, svc.Rank(nil))
}
