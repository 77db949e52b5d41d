package workcenter

import (
	"strings"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// GateInput is everything the permission gate looks at.
type GateInput struct {
	CallerID        *int64
	AssigneeID      *int64
	ComplaintStatus domain.ComplaintStatus
	History         []domain.HistoryEntry
	SelectedEntryID string
}

// Permissions are the booleans every editable field and action reads.
type Permissions struct {
	IsUnassigned bool
	IsMine       bool
	IsOthers     bool
	IsLatest     bool
	IsTerminal   bool
	IsEditable   bool
}

// Actions lists which operations are currently enabled.
type Actions struct {
	CanAssign        bool
	CanRelease       bool
	CanReroute       bool
	CanAnswer        bool
	CanEditDraft     bool
	CanGenerateDraft bool
}

// DerivePermissions maps identity, assignment and selection to permission booleans.
// It panics when history is empty: a loaded complaint always has a latest entry.
func DerivePermissions(in GateInput) Permissions {
	if len(in.History) == 0 {
		panic("workcenter: permission gate called with empty history")
	}
	latest := in.History[len(in.History)-1]
	selected := latest
	for _, entry := range in.History {
		if entry.EntryID == in.SelectedEntryID {
			selected = entry
			break
		}
	}

	p := Permissions{}
	p.IsUnassigned = in.AssigneeID == nil
	p.IsMine = in.AssigneeID != nil && in.CallerID != nil && *in.AssigneeID == *in.CallerID
	p.IsOthers = !p.IsUnassigned && !p.IsMine
	p.IsLatest = selected.EntryID == latest.EntryID
	p.IsTerminal = selected.Status.IsTerminal()
	p.IsEditable = p.IsMine && p.IsLatest && !p.IsTerminal
	return p
}

// DeriveActions computes enabled actions from permissions and the complaint.
func DeriveActions(p Permissions, complaintStatus domain.ComplaintStatus, parent *domain.HistoryEntry) Actions {
	open := !complaintStatus.IsTerminal()
	return Actions{
		CanAssign:        p.IsUnassigned && open,
		CanRelease:       p.IsMine && open,
		CanReroute:       p.IsMine && open,
		CanAnswer:        p.IsEditable,
		CanEditDraft:     p.IsEditable,
		CanGenerateDraft: p.IsEditable && parent != nil && strings.TrimSpace(parent.Body) != "",
	}
}
