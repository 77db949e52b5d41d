package workcenter

import "github.com/spec-kit/complaint-workcenter/internal/domain"

// View is a consistent snapshot of a workcenter for rendering.
type View struct {
	State           State
	Complaint       *domain.Complaint
	Identity        *domain.Identity
	Permissions     Permissions
	Actions         Actions
	SelectedEntryID string
	Draft           string
	// ReadOnlyNotice is set while a prior entry is shown: it cannot be edited
	// and switching away from the latest entry discarded any unsaved draft.
	ReadOnlyNotice bool
	Reroute        RerouteView
	Chat           ChatView
	DraftState     DraftState
	Notifications  []domain.Notification
}

// RerouteView is the reroute dialog state.
type RerouteView struct {
	Open       bool
	Bureaus    []domain.Department
	Divisions  []domain.Department
	BureauID   *int64
	DivisionID *int64
	Reason     string
	CanSubmit  bool
}

// ChatView is the chat panel state.
type ChatView struct {
	State      ChatState
	Transcript []domain.ChatMessage
	Documents  []domain.ReferenceDocument
}

// View returns the current snapshot. Complaint data is shared read-only:
// refetches replace the complaint instead of mutating it.
func (w *Workcenter) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		State:         w.state,
		Identity:      w.identity,
		DraftState:    w.panel.draftState,
		Notifications: append([]domain.Notification(nil), w.notifications...),
		Chat: ChatView{
			State:      w.panel.chatState,
			Transcript: append([]domain.ChatMessage(nil), w.panel.transcript...),
			Documents:  append([]domain.ReferenceDocument(nil), w.panel.documents...),
		},
	}
	if w.complaint == nil {
		return v
	}
	v.Complaint = w.complaint
	v.Permissions, v.Actions = w.gateLocked()
	v.SelectedEntryID = w.timeline.SelectedID()
	v.Draft = w.timeline.Draft()
	v.ReadOnlyNotice = !v.Permissions.IsLatest

	selection := w.reroute.Selection()
	v.Reroute = RerouteView{
		Open:       w.reroute.IsOpen(),
		Bureaus:    w.reroute.Bureaus(),
		Divisions:  w.reroute.Divisions(),
		BureauID:   selection.BureauID,
		DivisionID: selection.DivisionID,
		Reason:     w.reroute.Reason(),
		CanSubmit:  w.reroute.CanSubmit(),
	}
	if w.panel.draftState == DraftDrafting {
		v.Actions.CanEditDraft = false
		v.Actions.CanGenerateDraft = false
		v.Actions.CanAnswer = false
	}
	return v
}
