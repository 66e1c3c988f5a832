package services

import (
	"sort"

	"github.com/zatekoja/queueboard/internal/domain/entities"
)

// RankedDepartment is a roster group with its checked-in count
type RankedDepartment struct {
	Key            string
	Doctors        []entities.Doctor
	CheckedInCount int
}

// DepartmentRankingService orders departments for display
type DepartmentRankingService struct{}

// NewDepartmentRankingService creates a new department ranking service
func NewDepartmentRankingService() *DepartmentRankingService {
	return &DepartmentRankingService{}
}

// Rank orders departments by checked-in doctors, most first. Departments with
// equal counts keep their delivered order and doctors within a department are
// left as delivered.
func (s *DepartmentRankingService) Rank(roster *entities.Roster) []RankedDepartment {
	if roster.IsEmpty() {
		return []RankedDepartment{}
	}

	ranked := make([]RankedDepartment, 0, len(roster.Departments))
	for _, dept := range roster.Departments {
		ranked = append(ranked, RankedDepartment{
			Key:            dept.Key,
			Doctors:        dept.Doctors,
			CheckedInCount: dept.CheckedInCount(),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CheckedInCount > ranked[j].CheckedInCount
	})

	return ranked
}
