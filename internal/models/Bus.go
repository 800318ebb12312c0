// internal/models/Bus.go
package models

import (
	"gorm.io/gorm"
)

type Bus struct {
	gorm.Model
	OperatorID  uint   `json:"operator_id" gorm:"index"`
	PlateNumber string `json:"plate_number" gorm:"uniqueIndex;not null"`
	Capacity    int    `json:"capacity"`
	Make        string `json:"make"`
	InService   bool   `json:"in_service" gorm:"default:true"`
}
