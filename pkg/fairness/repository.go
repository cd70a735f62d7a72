package fairness

import (
	"context"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"gorm.io/gorm"
)

// Repository reads the joined prediction+feature rows the monitor audits.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) JoinedRows(ctx context.Context) ([]models.PredictionRow, error) {
	var rows []models.PredictionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.risk_category,
			p.risk_score,
			p.framingham_score,
			f.age,
			f.gender,
			f.bmi,
			f.avg_systolic_bp AS systolic_bp,
			f.avg_cholesterol AS cholesterol
		FROM risk_predictions p
		JOIN patient_features f ON p.patient_id = f.patient_id
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
