package domain

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Identity describes the caller of a workcenter session. It never changes during a session.
type Identity struct {
	UserID         int64
	DisplayName    string
	Role           AgentRole
	DepartmentName string
}
