package workcenter

import "github.com/spec-kit/complaint-workcenter/internal/domain"

// Timeline is a view over the complaint history: the selected entry and the
// answer draft bound to it. Changing the selection discards unsaved edits.
type Timeline struct {
	selectedID string
	draft      string
}

// NewTimeline selects the latest entry of history.
func NewTimeline(history []domain.HistoryEntry) Timeline {
	t := Timeline{}
	t.selectLatest(history)
	return t
}

// SelectedID returns the selected entry id.
func (t *Timeline) SelectedID() string {
	return t.selectedID
}

// Draft returns the answer buffer.
func (t *Timeline) Draft() string {
	return t.draft
}

// SetDraft replaces the answer buffer.
func (t *Timeline) SetDraft(text string) {
	t.draft = text
}

// Select shows entryID and resets the draft to its persisted answer.
func (t *Timeline) Select(history []domain.HistoryEntry, entryID string) error {
	for i := range history {
		if history[i].EntryID == entryID {
			t.selectedID = entryID
			t.draft = history[i].PersistedAnswer()
			return nil
		}
	}
	return ErrUnknownEntry
}

// Refresh re-resolves the selection against refetched history. The draft is
// re-synced from the persisted answer; a vanished entry falls back to the latest.
func (t *Timeline) Refresh(history []domain.HistoryEntry) {
	if err := t.Select(history, t.selectedID); err != nil {
		t.selectLatest(history)
	}
}

func (t *Timeline) selectLatest(history []domain.HistoryEntry) {
	if len(history) == 0 {
		t.selectedID = ""
		t.draft = ""
		return
	}
	latest := history[len(history)-1]
	t.selectedID = latest.EntryID
	t.draft = latest.PersistedAnswer()
}
