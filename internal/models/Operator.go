// internal/models/Operator.go
package models

import (
	"gorm.io/gorm"
)

// Operator lifecycle states.
const (
	OperatorPending   = "pending"
	OperatorActive    = "active"
	OperatorSuspended = "suspended"
)

// Operator represents a bus company selling seats on its routes.
// Agents may onboard an operator on its behalf; the operator's own user
// account is linked through UserID.
type Operator struct {
	gorm.Model
	UserID      *uint  `gorm:"uniqueIndex" json:"user_id,omitempty"` // nil for records created without an account
	Name        string `json:"name" binding:"required"`
	Email       string `gorm:"uniqueIndex;not null" json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Status      string `gorm:"default:pending;index" json:"status"`
	OnboardedBy *uint  `gorm:"index" json:"onboarded_by,omitempty"` // agent user id

	Buses  []Bus   `gorm:"foreignKey:OperatorID" json:"buses,omitempty"`
	Routes []Route `gorm:"foreignKey:OperatorID" json:"routes,omitempty"`
}
