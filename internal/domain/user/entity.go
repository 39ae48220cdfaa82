package user

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

const (
	RoleOwner = "owner"
	RoleAgent = "agent"
)

// User mirrors the slice of the external identity store this core reads:
// role, email, and service-area attributes. Writes belong to the identity
// collaborator, never to this module.
type User struct {
	ID              uint `gorm:"primaryKey"`
	Email           string
	Role            string `gorm:"size:16"`
	PrimaryAreaCode sql.NullString
	CreatedAt       time.Time
}

// AgentProfile carries an agent's explicitly configured secondary areas.
type AgentProfile struct {
	UserID    uint           `gorm:"primaryKey;autoIncrement:false"`
	AreaCodes datatypes.JSON `gorm:"type:jsonb"`
}

// Identity is the resolved view the services consume.
type Identity struct {
	ID        uint
	Email     string
	Role      string
	AreaCodes []string
}

// ServesArea reports whether the identity's resolved area set contains the
// given area code.
func (i Identity) ServesArea(areaCode string) bool {
	for _, a := range i.AreaCodes {
		if a == areaCode {
			return true
		}
	}
	return false
}

func (User) TableName() string {
	return "users"
}

func (AgentProfile) TableName() string {
	return "agent_profiles"
}
