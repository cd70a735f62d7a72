package scoring

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("risk prediction not found")

// RiskPrediction is one persisted prediction row, upserted by patient id.
// The fairness monitor joins this table against patient_features.
type RiskPrediction struct {
	ID              int64     `json:"-" gorm:"primaryKey;column:id"`
	PatientID       string    `json:"patient_id" gorm:"column:patient_id;uniqueIndex"`
	RiskScore       float64   `json:"risk_score" gorm:"column:risk_score"`
	RiskCategory    string    `json:"risk_category" gorm:"column:risk_category"`
	FraminghamScore *float64  `json:"framingham_score" gorm:"column:framingham_score"`
	ModelVersion    string    `json:"model_version" gorm:"column:model_version"`
	PredictedAt     time.Time `json:"predicted_at" gorm:"column:predicted_at"`
}

func (RiskPrediction) TableName() string {
	return "risk_predictions"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RiskPrediction{})
}

// Save upserts the prediction for a patient inside one transaction.
func (r *Repository) Save(ctx context.Context, prediction *RiskPrediction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RiskPrediction
		result := tx.First(&existing, "patient_id = ?", prediction.PatientID)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		prediction.PredictedAt = time.Now().UTC()
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(prediction).Error
		}

		prediction.ID = existing.ID
		return tx.Save(prediction).Error
	})
}

func (r *Repository) Find(ctx context.Context, patientID string) (*RiskPrediction, error) {
	var prediction RiskPrediction
	result := r.db.WithContext(ctx).First(&prediction, "patient_id = ?", patientID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &prediction, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]RiskPrediction, error) {
	if limit <= 0 {
		limit = 100
	}
	var predictions []RiskPrediction
	err := r.db.WithContext(ctx).
		Order("predicted_at DESC").
		Limit(limit).
		Find(&predictions).Error
	return predictions, err
}
