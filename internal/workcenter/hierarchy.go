package workcenter

import "github.com/spec-kit/complaint-workcenter/internal/domain"

// Bureaus returns the top tier of the hierarchy, in snapshot order.
func Bureaus(all []domain.Department) []domain.Department {
	out := make([]domain.Department, 0, len(all))
	for _, d := range all {
		if d.Category == domain.DepartmentCategoryBureau {
			out = append(out, d)
		}
	}
	return out
}

// Divisions returns the divisions whose parent is the given bureau.
// A nil bureau yields no divisions.
func Divisions(all []domain.Department, bureauID *int64) []domain.Department {
	out := make([]domain.Department, 0)
	if bureauID == nil {
		return out
	}
	for _, d := range all {
		if d.Category == domain.DepartmentCategoryDivision && d.ParentID != nil && *d.ParentID == *bureauID {
			out = append(out, d)
		}
	}
	return out
}

// Orphans reports divisions whose parent is not an existing bureau.
func Orphans(all []domain.Department) []domain.Department {
	bureaus := make(map[int64]struct{})
	for _, d := range all {
		if d.Category == domain.DepartmentCategoryBureau {
			bureaus[d.ID] = struct{}{}
		}
	}
	var out []domain.Department
	for _, d := range all {
		if d.Category != domain.DepartmentCategoryDivision {
			continue
		}
		if d.ParentID == nil {
			out = append(out, d)
			continue
		}
		if _, ok := bureaus[*d.ParentID]; !ok {
			out = append(out, d)
		}
	}
	return out
}

// DepartmentSelection is the two-tier selector value.
type DepartmentSelection struct {
	BureauID   *int64
	DivisionID *int64
}

// OnBureauChange selects a bureau and always clears the division.
func (s DepartmentSelection) OnBureauChange(bureauID int64) DepartmentSelection {
	return DepartmentSelection{BureauID: &bureauID}
}

func findDepartment(all []domain.Department, id int64) (domain.Department, bool) {
	for _, d := range all {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Department{}, false
}
