package models

import "time"

type AgentRole string

const (
	AgentRoleDuelist    AgentRole = "Duelist"
	AgentRoleInitiator  AgentRole = "Initiator"
	AgentRoleController AgentRole = "Controller"
	AgentRoleSentinel   AgentRole = "Sentinel"
	AgentRoleFlex       AgentRole = "Flex"
)

func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleDuelist, AgentRoleInitiator, AgentRoleController, AgentRoleSentinel, AgentRoleFlex:
		return true
	}
	return false
}

// FreeAgentPost is a "looking for team" listing.
type FreeAgentPost struct {
	ID          int         `json:"id"`
	UserID      int         `json:"user_id"`
	RiotID      string      `json:"riot_id"`
	Rank        string      `json:"rank"`
	Roles       []AgentRole `json:"roles"`
	Region      string      `json:"region"`
	Description string      `json:"description"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	User *User `json:"user,omitempty"`
}

type FreeAgentFilter struct {
	Role   *AgentRole
	Region string
	Rank   string
	Limit  int
	Offset int
}
