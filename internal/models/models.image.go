// FilePath: internal/models/models.image.go
package models

import "time"

// Image is the record of one reported detection and its stored picture.
type Image struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	HiveID      string    `json:"hive_id" db:"hive_id"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type ReportStatus string

const ReportStatusReported ReportStatus = "reported"

// Report is the audit trail of a detection flagged as false. Never updated.
type Report struct {
	ID                string       `json:"id" db:"id"`
	UserID            string       `json:"user_id" db:"user_id"`
	HiveID            string       `json:"hive_id" db:"hive_id"`
	ImageID           string       `json:"image_id" db:"image_id"`
	OriginalTimestamp time.Time    `json:"original_timestamp" db:"original_timestamp"`
	ReportedAt        time.Time    `json:"reported_at" db:"reported_at"`
	StoragePath       string       `json:"storage_path" db:"storage_path"`
	ImageURL          string       `json:"image_url" db:"image_url"`
	Status            ReportStatus `json:"status" db:"status"`
}

// DetectionResult is what a reported detection left behind.
type DetectionResult struct {
	Image          *Image    `json:"image"`
	DetectionCount int       `json:"detection_count"`
	RiskLevel      RiskLevel `json:"risk_level"`
}
