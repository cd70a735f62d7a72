package fhir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("fhir resource not found")

// RawResource is a row of the anonymized resource table populated by the
// external bulk loader. ResourceData holds the full FHIR JSON.
type RawResource struct {
	ID           int64          `gorm:"primaryKey;column:id"`
	ResourceType string         `gorm:"column:resource_type"`
	FhirID       string         `gorm:"column:anonymized_fhir_id"`
	ResourceData datatypes.JSON `gorm:"column:resource_data"`
	LoadedAt     time.Time      `gorm:"column:loaded_at"`
}

func (RawResource) TableName() string {
	return "fhir_resources_anonymized"
}

// ClinicalNote is a free-text note row decoded by the external loader from
// DocumentReference attachments.
type ClinicalNote struct {
	ID          int64      `gorm:"primaryKey;column:id"`
	PatientID   string     `gorm:"column:patient_id"`
	EncounterID string     `gorm:"column:encounter_id"`
	NoteDate    *time.Time `gorm:"column:note_date"`
	NoteType    string     `gorm:"column:note_type"`
	NoteText    string     `gorm:"column:note_text"`
}

func (ClinicalNote) TableName() string {
	return "clinical_notes"
}

// Store is the read-only query surface over the raw record store: a patient
// by id, the observations referencing a patient, and the patient's notes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Patient(ctx context.Context, patientID string) (Resource, error) {
	var row RawResource
	result := s.db.WithContext(ctx).
		Where("resource_type = ? AND anonymized_fhir_id = ?", "Patient", patientID).
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return decodeResource(row.ResourceData)
}

func (s *Store) Observations(ctx context.Context, patientID string) ([]Resource, error) {
	var rows []RawResource
	err := s.db.WithContext(ctx).
		Where("resource_type = ? AND resource_data -> 'subject' ->> 'reference' = ?",
			"Observation", "Patient/"+patientID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	observations := make([]Resource, 0, len(rows))
	for _, row := range rows {
		resource, err := decodeResource(row.ResourceData)
		if err != nil {
			// A single corrupt row must not sink the whole extraction.
			continue
		}
		if !observationFor(resource, patientID) {
			// The loader occasionally mislabels rows; the payload itself
			// is authoritative.
			continue
		}
		observations = append(observations, resource)
	}
	return observations, nil
}

// observationFor checks that a decoded payload really is an Observation for
// the requested patient, guarding against row/payload mismatches.
func observationFor(resource Resource, patientID string) bool {
	return resource.Type() == "Observation" && resource.SubjectID() == patientID
}

func (s *Store) Notes(ctx context.Context, patientID string) ([]string, error) {
	var rows []ClinicalNote
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("note_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	notes := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.NoteText != "" {
			notes = append(notes, row.NoteText)
		}
	}
	return notes, nil
}

func decodeResource(data datatypes.JSON) (Resource, error) {
	var resource Resource
	if err := json.Unmarshal(data, &resource); err != nil {
		return nil, fmt.Errorf("decoding fhir resource: %w", err)
	}
	return resource, nil
}
