package domain

import "strings"

// DepartmentCategory places a department in the two-tier hierarchy.
type DepartmentCategory string

const (
	DepartmentCategoryBureau   DepartmentCategory = "BUREAU"
	DepartmentCategoryDivision DepartmentCategory = "DIVISION"
	DepartmentCategoryOther    DepartmentCategory = "OTHER"
)

// ParseDepartmentCategory maps wire values, including the backend's GU/GUK/GWA codes.
func ParseDepartmentCategory(raw string) DepartmentCategory {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUREAU", "GUK":
		return DepartmentCategoryBureau
	case "DIVISION", "GWA":
		return DepartmentCategoryDivision
	default:
		return DepartmentCategoryOther
	}
}

// Department is a node of the bureau/division hierarchy.
type Department struct {
	ID       int64
	Name     string
	Category DepartmentCategory
	ParentID *int64
}

// RerouteRequest asks to move a complaint to another department.
type RerouteRequest struct {
	ComplaintID        int64
	TargetDepartmentID int64
	Reason             string
}
