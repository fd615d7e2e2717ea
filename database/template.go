package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/marathon/validation"
)

// DefaultLocale is stored when a template is created without a locale.
const DefaultLocale = "en"

// TemplateUniqueIndex enforces one template per (app_id, name, locale).
const TemplateUniqueIndex = "templates_app_id_name_locale"

// Template is a localized message template owned by an App.
type Template struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppID        uuid.UUID `gorm:"type:uuid;uniqueIndex:templates_app_id_name_locale,priority:1" json:"appId" validate:"required"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:templates_app_id_name_locale,priority:2" json:"name" validate:"required,min=1,max=255"`
	Locale       string    `gorm:"size:10;not null;default:en;uniqueIndex:templates_app_id_name_locale,priority:3" json:"locale" validate:"omitempty,min=1,max=10"`
	Defaults     JSON      `gorm:"not null" json:"defaults" validate:"required,json"`
	Body         JSON      `gorm:"not null" json:"body" validate:"required,json"`
	CompiledBody string    `gorm:"size:255;not null" json:"compiledBody" validate:"required,max=255"`
	CreatedBy    string    `gorm:"size:2000;not null" json:"createdBy" validate:"required,min=1,max=2000"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	App *App `gorm:"foreignKey:AppID" json:"app,omitempty" validate:"-"`
}

// TableName pins the table name used by the SQL migrations.
func (Template) TableName() string { return "templates" }

// Validate checks the field rules of the templates table.
func (t *Template) Validate() error {
	return validation.Validate(t)
}

// BeforeCreate assigns an id, defaults the locale and validates the record.
func (t *Template) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Locale == "" {
		t.Locale = DefaultLocale
	}
	return t.Validate()
}
