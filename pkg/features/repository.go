package features

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient features not found")

// PatientFeatures is the persisted feature row, one per patient. Typed
// columns carry the scalar features for SQL-side analytics; FeaturesJSON is
// the full raw snapshot including entity lists.
type PatientFeatures struct {
	ID        int64  `json:"-" gorm:"primaryKey;column:id"`
	PatientID string `json:"patient_id" gorm:"column:patient_id;uniqueIndex"`

	Age    *float64 `json:"age" gorm:"column:age"`
	Gender *string  `json:"gender" gorm:"column:gender"`
	BMI    *float64 `json:"bmi" gorm:"column:bmi"`

	AvgSystolicBP  *float64 `json:"avg_systolic_bp" gorm:"column:avg_systolic_bp"`
	AvgDiastolicBP *float64 `json:"avg_diastolic_bp" gorm:"column:avg_diastolic_bp"`
	HeightCm       *float64 `json:"height_cm" gorm:"column:height_cm"`
	WeightKg       *float64 `json:"weight_kg" gorm:"column:weight_kg"`

	AvgCholesterol   *float64 `json:"avg_cholesterol" gorm:"column:avg_cholesterol"`
	AvgHDL           *float64 `json:"avg_hdl" gorm:"column:avg_hdl"`
	AvgLDL           *float64 `json:"avg_ldl" gorm:"column:avg_ldl"`
	AvgTriglycerides *float64 `json:"avg_triglycerides" gorm:"column:avg_triglycerides"`
	AvgHemoglobin    *float64 `json:"avg_hemoglobin" gorm:"column:avg_hemoglobin"`

	TotalObservations     *int     `json:"total_observations" gorm:"column:total_observations"`
	ObservationSpanDays   *int     `json:"observation_span_days" gorm:"column:observation_span_days"`
	ConsultationFrequency *float64 `json:"consultation_frequency" gorm:"column:consultation_frequency"`

	NlpNumConditions  *int `json:"nlp_num_conditions" gorm:"column:nlp_num_conditions"`
	NlpHasDiabetes    *int `json:"nlp_has_diabetes" gorm:"column:nlp_has_diabetes"`
	NlpHasHypertension *int `json:"nlp_has_hypertension" gorm:"column:nlp_has_hypertension"`
	NlpHasCHF         *int `json:"nlp_has_chf" gorm:"column:nlp_has_chf"`
	NlpHasCOPD        *int `json:"nlp_has_copd" gorm:"column:nlp_has_copd"`
	NlpHasCKD         *int `json:"nlp_has_ckd" gorm:"column:nlp_has_ckd"`
	NlpNumMedications *int `json:"nlp_num_medications" gorm:"column:nlp_num_medications"`
	NlpPolypharmacy   *int `json:"nlp_polypharmacy" gorm:"column:nlp_polypharmacy"`
	NlpNumSymptoms    *int `json:"nlp_num_symptoms" gorm:"column:nlp_num_symptoms"`
	NlpHasPain        *int `json:"nlp_has_pain" gorm:"column:nlp_has_pain"`
	NlpHasDyspnea     *int `json:"nlp_has_dyspnea" gorm:"column:nlp_has_dyspnea"`

	NlpNoteLength    *int     `json:"nlp_note_length" gorm:"column:nlp_note_length"`
	NlpNoteCount     *int     `json:"nlp_note_count" gorm:"column:nlp_note_count"`
	NlpAvgNoteLength *float64 `json:"nlp_avg_note_length" gorm:"column:nlp_avg_note_length"`

	FeaturesJSON   datatypes.JSONMap `json:"features_json" gorm:"column:features_json"`
	ExtractionDate time.Time         `json:"extraction_date" gorm:"column:extraction_date"`
}

func (PatientFeatures) TableName() string {
	return "patient_features"
}

// Repository persists feature vectors with upsert-by-patient-id semantics.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PatientFeatures{})
}

func (r *Repository) Find(ctx context.Context, patientID string) (*PatientFeatures, error) {
	var record PatientFeatures
	result := r.db.WithContext(ctx).First(&record, "patient_id = ?", patientID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

// Save updates the row for patientID in place when one exists, otherwise
// inserts a new one. The decision runs inside a single transaction so a
// failure leaves no partial record behind.
func (r *Repository) Save(ctx context.Context, patientID string, vector models.FeatureVector) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PatientFeatures
		result := tx.First(&existing, "patient_id = ?", patientID)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		record := &existing
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			record = &PatientFeatures{PatientID: patientID}
		}
		record.apply(vector)
		record.ExtractionDate = time.Now().UTC()

		if record.ID == 0 {
			return tx.Create(record).Error
		}
		return tx.Save(record).Error
	})
}

func (r *Repository) List(ctx context.Context) ([]PatientFeatures, error) {
	var records []PatientFeatures
	err := r.db.WithContext(ctx).Order("patient_id ASC").Find(&records).Error
	return records, err
}

// ListIDs returns every patient id with a persisted feature row; bulk
// extraction iterates over this set.
func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&PatientFeatures{}).
		Order("patient_id ASC").
		Pluck("patient_id", &ids).Error
	return ids, err
}

func (r *Repository) Stats(ctx context.Context) (models.FeatureStats, error) {
	var row struct {
		Total          int64
		AvgAge         *float64
		AvgBMI         *float64
		AvgCholesterol *float64
	}
	err := r.db.WithContext(ctx).
		Model(&PatientFeatures{}).
		Select("COUNT(id) AS total, AVG(age) AS avg_age, AVG(bmi) AS avg_bmi, AVG(avg_cholesterol) AS avg_cholesterol").
		Scan(&row).Error
	if err != nil {
		return models.FeatureStats{}, err
	}

	return models.FeatureStats{
		TotalPatients:      row.Total,
		AverageAge:         roundPtr(row.AvgAge, 1),
		AverageBMI:         roundPtr(row.AvgBMI, 2),
		AverageCholesterol: roundPtr(row.AvgCholesterol, 2),
	}, nil
}

func (p *PatientFeatures) apply(vector models.FeatureVector) {
	p.Age = floatField(vector, "age")
	p.Gender = stringField(vector, "gender")
	p.BMI = floatField(vector, "bmi")

	p.AvgSystolicBP = floatField(vector, "avg_systolic_bp")
	p.AvgDiastolicBP = floatField(vector, "avg_diastolic_bp")
	p.HeightCm = floatField(vector, "height_cm")
	p.WeightKg = floatField(vector, "weight_kg")

	p.AvgCholesterol = floatField(vector, "avg_cholesterol")
	p.AvgHDL = floatField(vector, "avg_hdl")
	p.AvgLDL = floatField(vector, "avg_ldl")
	p.AvgTriglycerides = floatField(vector, "avg_triglycerides")
	p.AvgHemoglobin = floatField(vector, "avg_hemoglobin")

	p.TotalObservations = intField(vector, "total_observations")
	p.ObservationSpanDays = intField(vector, "observation_span_days")
	p.ConsultationFrequency = floatField(vector, "consultation_frequency")

	p.NlpNumConditions = intField(vector, "nlp_num_conditions")
	p.NlpHasDiabetes = intField(vector, "nlp_has_diabetes")
	p.NlpHasHypertension = intField(vector, "nlp_has_hypertension")
	p.NlpHasCHF = intField(vector, "nlp_has_chf")
	p.NlpHasCOPD = intField(vector, "nlp_has_copd")
	p.NlpHasCKD = intField(vector, "nlp_has_ckd")
	p.NlpNumMedications = intField(vector, "nlp_num_medications")
	p.NlpPolypharmacy = intField(vector, "nlp_polypharmacy")
	p.NlpNumSymptoms = intField(vector, "nlp_num_symptoms")
	p.NlpHasPain = intField(vector, "nlp_has_pain")
	p.NlpHasDyspnea = intField(vector, "nlp_has_dyspnea")

	p.NlpNoteLength = intField(vector, "nlp_note_length")
	p.NlpNoteCount = intField(vector, "nlp_note_count")
	p.NlpAvgNoteLength = floatField(vector, "nlp_avg_note_length")

	p.FeaturesJSON = datatypes.JSONMap(vector)
}

func floatField(vector models.FeatureVector, key string) *float64 {
	switch v := vector[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func intField(vector models.FeatureVector, key string) *int {
	switch v := vector[key].(type) {
	case int:
		return &v
	case float64:
		i := int(v)
		return &i
	default:
		return nil
	}
}

func stringField(vector models.FeatureVector, key string) *string {
	if v, ok := vector[key].(string); ok {
		return &v
	}
	return nil
}

func roundPtr(value *float64, decimals int) *float64 {
	if value == nil {
		return nil
	}
	factor := math.Pow(10, float64(decimals))
	rounded := math.Round(*value*factor) / factor
	return &rounded
}
