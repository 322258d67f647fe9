package domain

// Role defines the sender of a conversation message.
type Role string

const (
	// RoleSystem indicates system instructions seeded at the start of a turn.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the end user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant Role = "assistant"
	// RoleTool indicates a tool execution result.
	RoleTool Role = "tool"
)
