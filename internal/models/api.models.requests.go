package models

import "time"

// HiveRef identifies one hive of one user in request bodies and queries.
type HiveRef struct {
	UserID string `json:"userId" schema:"userId"`
	HiveID string `json:"hiveId" schema:"hiveId"`
}

type UserQuery struct {
	UserID string `schema:"userId"`
}

type SaveImageRequest struct {
	HiveRef
	ImageData string `json:"imageData"`
}

type FalseDetectionRequest struct {
	HiveRef
	ImageID string `json:"imageId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FCMToken string `json:"fcmToken"`
}

// HiveSummary is the list view of a hive.
type HiveSummary struct {
	HiveID         string    `json:"hiveId"`
	DetectionCount int       `json:"detectionCount"`
	IsActive       bool      `json:"isActive"`
	Location       string    `json:"location"`
	LastActivation string    `json:"lastActivation"`
	HiveName       string    `json:"hiveName"`
	RiskLevel      RiskLevel `json:"riskLevel"`
}

// ImageSummary is the list view of a detection image.
type ImageSummary struct {
	ImageID   string `json:"imageId"`
	Timestamp string `json:"timestamp"`
	ImageURL  string `json:"imageUrl"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ActivateHiveResponse struct {
	Message        string    `json:"message"`
	HiveID         string    `json:"hiveId"`
	IsActive       bool      `json:"isActive"`
	LastActivation time.Time `json:"lastActivation"`
}

type SaveImageResponse struct {
	Message        string    `json:"message"`
	ImageID        string    `json:"imageId"`
	ImageURL       string    `json:"imageUrl"`
	DetectionCount int       `json:"detectionCount"`
	RiskLevel      RiskLevel `json:"riskLevel"`
}

type FalseDetectionResponse struct {
	Message        string `json:"message"`
	ReportID       string `json:"reportId"`
	ReportImageURL string `json:"reportImageUrl"`
}

type ClearHiveImagesResponse struct {
	Message       string `json:"message"`
	ImagesDeleted int    `json:"imagesDeleted"`
	BlobFailures  int    `json:"blobFailures"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
}
