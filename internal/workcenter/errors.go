package workcenter

import "errors"

var (
	ErrNotReady              = errors.New("workcenter not ready")
	ErrClosed                = errors.New("workcenter closed")
	ErrUnknownEntry          = errors.New("history entry not found")
	ErrActionNotPermitted    = errors.New("action not permitted")
	ErrEmptyAnswer           = errors.New("answer is empty")
	ErrDraftLocked           = errors.New("answer draft is locked while a draft is generated")
	ErrDraftInProgress       = errors.New("draft generation already in progress")
	ErrOverwriteNotConfirmed = errors.New("overwriting the current draft requires confirmation")
	ErrReleaseNotConfirmed   = errors.New("releasing the assignment requires confirmation")
	ErrChatInFlight          = errors.New("a chat request is already in flight")
	ErrEmptyQuery            = errors.New("chat query is empty")
	ErrInvalidChatMode       = errors.New("unknown chat mode")
	ErrRerouteClosed         = errors.New("reroute dialog is not open")
	ErrRerouteIncomplete     = errors.New("reroute requires a division and a reason")
	ErrUnknownDepartment     = errors.New("department not selectable")
	ErrStaleResult           = errors.New("result discarded: selection changed or request cancelled")
)
