package types

import (
	"time"

	"github.com/google/uuid"
)

// FormationCache is a local read replica of the catalog service's Formation
// records, kept in sync by the formation-created event.
type FormationCache struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code        string    `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Credits     int       `gorm:"column:credits;not null;default:0" json:"credits"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FormationCache) TableName() string { return "formation_cache" }

// FormationCreatedEvent is the catalog service's payload, delivered either
// over the broker channel or the HTTP relay endpoint.
type FormationCreatedEvent struct {
	FormationID uuid.UUID `json:"formation_id"`
	Code        string    `json:"code" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Credits     int       `json:"credits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
