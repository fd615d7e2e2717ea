package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/marathon/validation"
)

// App is a client application that owns templates.
type App struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name" validate:"required,min=1,max=255"`
	BundleID  string    `gorm:"size:2000;not null" json:"bundleId" validate:"required,min=1,max=2000"`
	CreatedBy string    `gorm:"size:2000;not null" json:"createdBy" validate:"required,min=1,max=2000"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name used by the SQL migrations.
func (App) TableName() string { return "apps" }

// Validate checks the field rules of the apps table.
func (a *App) Validate() error {
	return validation.Validate(a)
}

// BeforeCreate assigns an id when absent and validates the record.
func (a *App) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return a.Validate()
}
