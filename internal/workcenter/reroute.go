package workcenter

import (
	"strings"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// RerouteWorkflow holds the reroute dialog: two-tier target selection and reason.
// The department list is a read-only snapshot handed in when the dialog opens.
type RerouteWorkflow struct {
	open        bool
	departments []domain.Department
	selection   DepartmentSelection
	reason      string
}

// Open shows the dialog over the given department snapshot. Entered data is kept.
func (r *RerouteWorkflow) Open(departments []domain.Department) {
	r.departments = departments
	r.open = true
}

// Cancel hides the dialog without clearing entered data.
func (r *RerouteWorkflow) Cancel() {
	r.open = false
}

// IsOpen reports dialog visibility.
func (r *RerouteWorkflow) IsOpen() bool {
	return r.open
}

// Bureaus lists selectable bureaus.
func (r *RerouteWorkflow) Bureaus() []domain.Department {
	return Bureaus(r.departments)
}

// Divisions lists divisions of the selected bureau only.
func (r *RerouteWorkflow) Divisions() []domain.Department {
	return Divisions(r.departments, r.selection.BureauID)
}

// Selection returns the current bureau/division selection.
func (r *RerouteWorkflow) Selection() DepartmentSelection {
	return r.selection
}

// Reason returns the entered reason text.
func (r *RerouteWorkflow) Reason() string {
	return r.reason
}

// SelectBureau switches the bureau and clears any division chosen under the previous one.
func (r *RerouteWorkflow) SelectBureau(bureauID int64) error {
	if !r.open {
		return ErrRerouteClosed
	}
	d, ok := findDepartment(r.departments, bureauID)
	if !ok || d.Category != domain.DepartmentCategoryBureau {
		return ErrUnknownDepartment
	}
	r.selection = r.selection.OnBureauChange(bureauID)
	return nil
}

// SelectDivision picks a division among the selected bureau's children.
func (r *RerouteWorkflow) SelectDivision(divisionID int64) error {
	if !r.open {
		return ErrRerouteClosed
	}
	for _, d := range r.Divisions() {
		if d.ID == divisionID {
			id := divisionID
			r.selection.DivisionID = &id
			return nil
		}
	}
	return ErrUnknownDepartment
}

// SetReason stores the reason text as typed.
func (r *RerouteWorkflow) SetReason(reason string) error {
	if !r.open {
		return ErrRerouteClosed
	}
	r.reason = reason
	return nil
}

// CanSubmit is the enable state of the submit button.
func (r *RerouteWorkflow) CanSubmit() bool {
	return r.open && r.selection.DivisionID != nil && strings.TrimSpace(r.reason) != ""
}

// Request builds the submission for complaintID, or fails while submission is disabled.
func (r *RerouteWorkflow) Request(complaintID int64) (domain.RerouteRequest, error) {
	if !r.open {
		return domain.RerouteRequest{}, ErrRerouteClosed
	}
	if !r.CanSubmit() {
		return domain.RerouteRequest{}, ErrRerouteIncomplete
	}
	return domain.RerouteRequest{
		ComplaintID:        complaintID,
		TargetDepartmentID: *r.selection.DivisionID,
		Reason:             r.reason,
	}, nil
}

// Reset closes the dialog and clears bureau, division and reason.
func (r *RerouteWorkflow) Reset() {
	r.open = false
	r.selection = DepartmentSelection{}
	r.reason = ""
}
