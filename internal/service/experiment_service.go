package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrExperimentNotFound covers both a missing experiment and one owned
	// by somebody else; callers must not be able to tell the two apart.
	ErrExperimentNotFound = errors.New("experiment not found")
	// ErrFieldNotFound is returned for a field id outside the experiment.
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldsLocked rejects structural field changes once check-ins exist.
	ErrFieldsLocked = errors.New("fields are locked once the experiment has check-ins")
	// ErrInvalidFieldConfig rejects malformed field definitions.
	ErrInvalidFieldConfig = errors.New("invalid field configuration")
	// ErrInvalidExperimentStatus rejects unsupported status values.
	ErrInvalidExperimentStatus = errors.New("invalid experiment status")
)

// ExperimentService owns experiment and field CRUD plus the ownership gate.
// Every lookup is scoped by owner id; no organisation role reaches another
// user's experiment through this service.
type ExperimentService struct {
	db *gorm.DB
}

// ExperimentInput defines the caller-settable experiment attributes.
type ExperimentInput struct {
	Title       string
	Description string
	Status      string
	StartDate   *time.Time
	EndDate     *time.Time
	OrgID       *uint
}

// FieldInput defines the caller-settable field attributes.
type FieldInput struct {
	Label         string
	Type          string
	Required      bool
	MinValue      *float64
	MaxValue      *float64
	EmojiCount    *int
	SelectOptions []string
	DisplayOrder  int
}

// NewExperimentService constructs an ExperimentService.
func NewExperimentService(gdb *gorm.DB) *ExperimentService {
	return &ExperimentService{db: gdb}
}

// Create stores a new experiment for ownerID and assigns its public id.
func (s *ExperimentService) Create(ownerID uint, input ExperimentInput) (*db.Experiment, error) {
	status, err := normalizeExperimentStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("experiment title is required")
	}

	experiment := db.Experiment{
		PublicID:    uuid.NewString(),
		OwnerID:     ownerID,
		OrgID:       input.OrgID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.db.Create(&experiment).Error; err != nil {
		return nil, fmt.Errorf("create experiment: %w", err)
	}
	return &experiment, nil
}

// List returns all experiments owned by ownerID, newest first.
func (s *ExperimentService) List(ownerID uint) ([]db.Experiment, error) {
	var experiments []db.Experiment
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&experiments).Error; err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	return experiments, nil
}

// GetOwned resolves an experiment by public id for its owner. Absent and
// not-owned experiments produce the same ErrExperimentNotFound.
func (s *ExperimentService) GetOwned(publicID string, ownerID uint) (*db.Experiment, error) {
	var experiment db.Experiment
	if err := s.db.Where("public_id = ? AND owner_id = ?", publicID, ownerID).
		First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	return &experiment, nil
}

// CanManage reports whether ownerID owns the experiment.
func (s *ExperimentService) CanManage(publicID string, ownerID uint) bool {
	_, err := s.GetOwned(publicID, ownerID)
	return err == nil
}

// Update replaces the caller-settable attributes of an owned experiment.
func (s *ExperimentService) Update(publicID string, ownerID uint, input ExperimentInput) (*db.Experiment, error) {
	experiment, err := s.GetOwned(publicID, ownerID)
	if err != nil {
		return nil, err
	}

	status, err := normalizeExperimentStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("experiment title is required")
	}

	experiment.Title = strings.TrimSpace(input.Title)
	experiment.Description = strings.TrimSpace(input.Description)
	experiment.Status = status
	experiment.StartDate = input.StartDate
	experiment.EndDate = input.EndDate
	experiment.OrgID = input.OrgID

	if err := s.db.Save(experiment).Error; err != nil {
		return nil, fmt.Errorf("update experiment: %w", err)
	}
	return experiment, nil
}

// Delete removes an owned experiment with its fields and check-ins.
func (s *ExperimentService) Delete(publicID string, ownerID uint) error {
	experiment, err := s.GetOwned(publicID, ownerID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("check_in_id IN (?)",
			tx.Model(&db.CheckIn{}).Select("id").Where("experiment_id = ?", experiment.ID),
		).Delete(&db.FieldResponse{}).Error; err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if err := tx.Where("experiment_id = ?", experiment.ID).Delete(&db.CheckIn{}).Error; err != nil {
			return fmt.Errorf("delete check-ins: %w", err)
		}
		if err := tx.Where("experiment_id = ?", experiment.ID).Delete(&db.Field{}).Error; err != nil {
			return fmt.Errorf("delete fields: %w", err)
		}
		if err := tx.Delete(&db.Experiment{}, experiment.ID).Error; err != nil {
			return fmt.Errorf("delete experiment: %w", err)
		}
		return nil
	})
}

// Fields returns an experiment's field definitions in display order.
func (s *ExperimentService) Fields(experimentID uint) ([]db.Field, error) {
	var fields []db.Field
	if err := s.db.Where("experiment_id = ?", experimentID).
		Order("display_order ASC, id ASC").
		Find(&fields).Error; err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	return fields, nil
}

// AddField appends a field definition. Rejected once check-ins exist.
func (s *ExperimentService) AddField(experiment *db.Experiment, input FieldInput) (*db.Field, error) {
	if err := validateFieldInput(input); err != nil {
		return nil, err
	}
	if err := s.ensureFieldsUnlocked(experiment.ID); err != nil {
		return nil, err
	}

	field := db.Field{
		ExperimentID:  experiment.ID,
		Label:         strings.TrimSpace(input.Label),
		Type:          input.Type,
		Required:      input.Required,
		MinValue:      input.MinValue,
		MaxValue:      input.MaxValue,
		EmojiCount:    input.EmojiCount,
		SelectOptions: input.SelectOptions,
		DisplayOrder:  input.DisplayOrder,
	}

	if err := s.db.Create(&field).Error; err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	return &field, nil
}

// UpdateField replaces a field definition. Rejected once check-ins exist.
func (s *ExperimentService) UpdateField(experiment *db.Experiment, fieldID uint, input FieldInput) (*db.Field, error) {
	if err := validateFieldInput(input); err != nil {
		return nil, err
	}
	if err := s.ensureFieldsUnlocked(experiment.ID); err != nil {
		return nil, err
	}

	var field db.Field
	if err := s.db.Where("id = ? AND experiment_id = ?", fieldID, experiment.ID).
		First(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("find field: %w", err)
	}

	field.Label = strings.TrimSpace(input.Label)
	field.Type = input.Type
	field.Required = input.Required
	field.MinValue = input.MinValue
	field.MaxValue = input.MaxValue
	field.EmojiCount = input.EmojiCount
	field.SelectOptions = input.SelectOptions
	field.DisplayOrder = input.DisplayOrder

	if err := s.db.Save(&field).Error; err != nil {
		return nil, fmt.Errorf("update field: %w", err)
	}
	return &field, nil
}

// DeleteField removes a field definition. Rejected once check-ins exist.
func (s *ExperimentService) DeleteField(experiment *db.Experiment, fieldID uint) error {
	if err := s.ensureFieldsUnlocked(experiment.ID); err != nil {
		return err
	}

	result := s.db.Where("id = ? AND experiment_id = ?", fieldID, experiment.ID).Delete(&db.Field{})
	if result.Error != nil {
		return fmt.Errorf("delete field: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFieldNotFound
	}
	return nil
}

func (s *ExperimentService) ensureFieldsUnlocked(experimentID uint) error {
	var count int64
	if err := s.db.Model(&db.CheckIn{}).Where("experiment_id = ?", experimentID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count check-ins: %w", err)
	}
	if count > 0 {
		return ErrFieldsLocked
	}
	return nil
}

func validateFieldInput(input FieldInput) error {
	if strings.TrimSpace(input.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidFieldConfig)
	}

	switch input.Type {
	case db.FieldTypeText, db.FieldTypeYesNo:
	case db.FieldTypeNumber:
		if input.MinValue != nil && input.MaxValue != nil && *input.MinValue > *input.MaxValue {
			return fmt.Errorf("%w: min value exceeds max value", ErrInvalidFieldConfig)
		}
	case db.FieldTypeEmoji:
		if input.EmojiCount == nil || *input.EmojiCount <= 0 {
			return fmt.Errorf("%w: emoji fields need a positive level count", ErrInvalidFieldConfig)
		}
	case db.FieldTypeSelect:
		if len(input.SelectOptions) == 0 {
			return fmt.Errorf("%w: select fields need at least one option", ErrInvalidFieldConfig)
		}
		for _, option := range input.SelectOptions {
			if strings.TrimSpace(option) == "" {
				return fmt.Errorf("%w: select options must be non-empty", ErrInvalidFieldConfig)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidFieldConfig, input.Type)
	}

	return nil
}

func normalizeExperimentStatus(status string) (string, error) {
	normalized := strings.TrimSpace(strings.ToLower(status))
	if normalized == "" {
		return db.ExperimentStatusDraft, nil
	}
	switch normalized {
	case db.ExperimentStatusDraft, db.ExperimentStatusActive,
		db.ExperimentStatusCompleted, db.ExperimentStatusArchived:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidExperimentStatus, status)
	}
}
