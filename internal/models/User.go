package models

import "gorm.io/gorm"

// Account roles.
const (
	RolePassenger = "passenger"
	RoleOperator  = "operator"
	RoleAgent     = "agent"
	RoleAdmin     = "admin"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Role     string `json:"role" gorm:"index"` // "passenger", "operator", "agent", "admin"

	// Set for operator accounts
	Operator *Operator `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"operator,omitempty"`
}
