package db

import (
	"time"

	"gorm.io/gorm"
)

// Experiment status values. Check-ins are only accepted while active.
const (
	ExperimentStatusDraft     = "draft"
	ExperimentStatusActive    = "active"
	ExperimentStatusCompleted = "completed"
	ExperimentStatusArchived  = "archived"
)

// Field type values. The set is closed; the validator rejects anything else
// on write, while the read-side aggregators degrade unknown types to
// text-like counting so old data keeps rendering.
const (
	FieldTypeText   = "text"
	FieldTypeNumber = "number"
	FieldTypeYesNo  = "yesno"
	FieldTypeEmoji  = "emoji"
	FieldTypeSelect = "select"
)

// Experiment is owned by exactly one user. PublicID is the identifier
// exposed over the API so row ids cannot be enumerated. OrgID links the
// experiment to an organisation for aggregate-only visibility and has no
// bearing on ownership.
type Experiment struct {
	gorm.Model
	PublicID    string `gorm:"size:36;uniqueIndex;not null"`
	OwnerID     uint   `gorm:"index;not null"`
	Owner       User
	OrgID       *uint `gorm:"index"`
	Title       string
	Description string
	Status      string `gorm:"size:20;default:draft"`
	StartDate   *time.Time
	EndDate     *time.Time
	Fields      []Field   `gorm:"constraint:OnDelete:CASCADE"`
	CheckIns    []CheckIn `gorm:"constraint:OnDelete:CASCADE"`
}

// Field defines one trackable metric of an experiment.
// MinValue/MaxValue apply to number fields, EmojiCount to emoji fields
// (valid values are 1..EmojiCount), SelectOptions to select fields.
// Field shape is frozen once the experiment has any check-in.
type Field struct {
	gorm.Model
	ExperimentID  uint   `gorm:"index;not null"`
	Label         string `gorm:"not null"`
	Type          string `gorm:"size:20;not null"`
	Required      bool
	MinValue      *float64
	MaxValue      *float64
	EmojiCount    *int
	SelectOptions []string `gorm:"serializer:json"`
	DisplayOrder  int
}

// CheckIn is one entry per experiment per UTC calendar day.
// ExperimentID + CheckinDate carry a unique index so a second write for the
// same day updates in place instead of inserting a duplicate.
type CheckIn struct {
	gorm.Model
	ExperimentID uint      `gorm:"index;index:idx_checkin_day,unique"`
	CheckinDate  time.Time `gorm:"index:idx_checkin_day,unique"`
	Notes        string
	AISummary    string
	Responses    []FieldResponse `gorm:"constraint:OnDelete:CASCADE"`
}

// TableName keeps the unique index on habit-style snake case naming.
func (CheckIn) TableName() string {
	return "check_ins"
}

// FieldResponse stores one value for one field on one check-in. Exactly one
// value column is populated and it must match the field's type; the service
// layer round-trips rows through a tagged union that enforces this.
type FieldResponse struct {
	gorm.Model
	CheckInID      uint `gorm:"index;not null"`
	FieldID        uint `gorm:"index;not null"`
	ResponseText   *string
	ResponseNumber *float64
	ResponseBool   *bool
	SelectedOption *string
}
