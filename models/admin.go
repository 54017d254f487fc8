package models

import "time"

// AdminRole - уровень доступа администратора. Больше значит сильнее.
type AdminRole int

const (
	RoleModerator AdminRole = iota + 1
	RoleSupervisor
	RoleAdmin
	RoleCoOwner
	RoleOwner
)

var roleNames = map[AdminRole]string{
	RoleModerator:  "moderator",
	RoleSupervisor: "supervisor",
	RoleAdmin:      "admin",
	RoleCoOwner:    "co_owner",
	RoleOwner:      "owner",
}

func (r AdminRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseAdminRole converts a role name into an AdminRole.
func ParseAdminRole(name string) (AdminRole, bool) {
	for role, n := range roleNames {
		if n == name {
			return role, true
		}
	}
	return 0, false
}

// AdminLog - запись аудита административных действий.
type AdminLog struct {
	ID        int       `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Action    string    `json:"action"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
