package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrCheckInNotFound is returned for a check-in id outside the experiment.
	ErrCheckInNotFound = errors.New("check-in not found")
	// ErrCheckInDayTaken signals a date change colliding with another day's
	// check-in.
	ErrCheckInDayTaken = errors.New("a check-in already exists for that day")
	// ErrExperimentNotActive rejects writes to non-active experiments.
	ErrExperimentNotActive = errors.New("experiment is not active")
	// ErrExperimentNotStarted rejects writes before a start date is set.
	ErrExperimentNotStarted = errors.New("experiment has no start date")
)

// CheckInService persists daily check-ins. All writes run the response
// validator against the complete proposed set and replace the day's
// responses atomically; a partially written response set is never visible.
type CheckInService struct {
	db *gorm.DB
}

// CheckInInput is one proposed day of data.
type CheckInInput struct {
	Date      time.Time
	Notes     string
	AISummary string
	Responses []SubmittedResponse
}

// NewCheckInService constructs a CheckInService.
func NewCheckInService(gdb *gorm.DB) *CheckInService {
	return &CheckInService{db: gdb}
}

// Upsert validates and writes the check-in for the input's UTC day. An
// existing check-in for that day is updated in place with its response set
// replaced; otherwise a new check-in is created. Validation rejections come
// back as the *ValidationError; infrastructure failures as the error.
func (s *CheckInService) Upsert(experiment *db.Experiment, fields []db.Field, input CheckInInput) (*db.CheckIn, *ValidationError, error) {
	if err := ensureWritable(experiment); err != nil {
		return nil, nil, err
	}

	if verr := ValidateResponses(fields, input.Responses); verr != nil {
		return nil, verr, nil
	}

	day := NormalizeToUTCDay(input.Date)

	var checkIn db.CheckIn
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("experiment_id = ? AND checkin_date = ?", experiment.ID, day).
			First(&checkIn).Error
		switch {
		case err == nil:
			checkIn.Notes = strings.TrimSpace(input.Notes)
			checkIn.AISummary = input.AISummary
			if err := tx.Save(&checkIn).Error; err != nil {
				return fmt.Errorf("update check-in: %w", err)
			}
			if err := tx.Unscoped().Where("check_in_id = ?", checkIn.ID).
				Delete(&db.FieldResponse{}).Error; err != nil {
				return fmt.Errorf("clear responses: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			checkIn = db.CheckIn{
				ExperimentID: experiment.ID,
				CheckinDate:  day,
				Notes:        strings.TrimSpace(input.Notes),
				AISummary:    input.AISummary,
			}
			if err := tx.Create(&checkIn).Error; err != nil {
				return fmt.Errorf("create check-in: %w", err)
			}
		default:
			return fmt.Errorf("find check-in: %w", err)
		}

		return insertResponses(tx, checkIn.ID, input.Responses)
	})
	if err != nil {
		return nil, nil, err
	}

	reloaded, err := s.Get(experiment.ID, checkIn.ID)
	if err != nil {
		return nil, nil, err
	}
	return reloaded, nil, nil
}

// Update rewrites an existing check-in by id, including a possible date
// change. Moving onto a day already taken by a different check-in fails
// with ErrCheckInDayTaken.
func (s *CheckInService) Update(experiment *db.Experiment, fields []db.Field, checkInID uint, input CheckInInput) (*db.CheckIn, *ValidationError, error) {
	if err := ensureWritable(experiment); err != nil {
		return nil, nil, err
	}

	if verr := ValidateResponses(fields, input.Responses); verr != nil {
		return nil, verr, nil
	}

	day := NormalizeToUTCDay(input.Date)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var checkIn db.CheckIn
		if err := tx.Where("id = ? AND experiment_id = ?", checkInID, experiment.ID).
			First(&checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCheckInNotFound
			}
			return fmt.Errorf("find check-in: %w", err)
		}

		if !checkIn.CheckinDate.Equal(day) {
			var collision int64
			if err := tx.Model(&db.CheckIn{}).
				Where("experiment_id = ? AND checkin_date = ? AND id <> ?", experiment.ID, day, checkIn.ID).
				Count(&collision).Error; err != nil {
				return fmt.Errorf("check day collision: %w", err)
			}
			if collision > 0 {
				return ErrCheckInDayTaken
			}
		}

		checkIn.CheckinDate = day
		checkIn.Notes = strings.TrimSpace(input.Notes)
		checkIn.AISummary = input.AISummary
		if err := tx.Save(&checkIn).Error; err != nil {
			return fmt.Errorf("update check-in: %w", err)
		}

		if err := tx.Unscoped().Where("check_in_id = ?", checkIn.ID).
			Delete(&db.FieldResponse{}).Error; err != nil {
			return fmt.Errorf("clear responses: %w", err)
		}

		return insertResponses(tx, checkIn.ID, input.Responses)
	})
	if err != nil {
		return nil, nil, err
	}

	reloaded, err := s.Get(experiment.ID, checkInID)
	if err != nil {
		return nil, nil, err
	}
	return reloaded, nil, nil
}

// List returns the experiment's check-ins in chronological order, optionally
// restricted to one UTC day.
func (s *CheckInService) List(experimentID uint, date *time.Time) ([]db.CheckIn, error) {
	query := s.db.Where("experiment_id = ?", experimentID)
	if date != nil {
		query = query.Where("checkin_date = ?", NormalizeToUTCDay(*date))
	}

	var checkIns []db.CheckIn
	if err := query.Preload("Responses").
		Order("checkin_date ASC").
		Find(&checkIns).Error; err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return checkIns, nil
}

// Get loads one check-in with its responses, scoped to the experiment.
func (s *CheckInService) Get(experimentID, checkInID uint) (*db.CheckIn, error) {
	var checkIn db.CheckIn
	if err := s.db.Preload("Responses").
		Where("id = ? AND experiment_id = ?", checkInID, experimentID).
		First(&checkIn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckInNotFound
		}
		return nil, fmt.Errorf("get check-in: %w", err)
	}
	return &checkIn, nil
}

// Delete removes one check-in and its responses.
func (s *CheckInService) Delete(experimentID, checkInID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var checkIn db.CheckIn
		if err := tx.Where("id = ? AND experiment_id = ?", checkInID, experimentID).
			First(&checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCheckInNotFound
			}
			return fmt.Errorf("find check-in: %w", err)
		}

		if err := tx.Unscoped().Where("check_in_id = ?", checkIn.ID).
			Delete(&db.FieldResponse{}).Error; err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		// Hard delete so the unique day index frees up for a future write.
		if err := tx.Unscoped().Delete(&checkIn).Error; err != nil {
			return fmt.Errorf("delete check-in: %w", err)
		}
		return nil
	})
}

// NormalizeToUTCDay truncates a timestamp to UTC midnight, the canonical
// check-in day key.
func NormalizeToUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func ensureWritable(experiment *db.Experiment) error {
	if experiment.Status != db.ExperimentStatusActive {
		return ErrExperimentNotActive
	}
	if experiment.StartDate == nil {
		return ErrExperimentNotStarted
	}
	return nil
}

func insertResponses(tx *gorm.DB, checkInID uint, responses []SubmittedResponse) error {
	for _, resp := range responses {
		row, ok := rowFromResponse(checkInID, resp)
		if !ok {
			// Absent values are validated but never stored.
			continue
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return nil
}
