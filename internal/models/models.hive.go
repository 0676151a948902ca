// FilePath: internal/models/models.hive.go
package models

import "time"

type RiskLevel string

const (
	RiskNone   RiskLevel = "no_risk"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	mediumRiskThreshold = 10
	highRiskThreshold   = 100
)

// alertThresholds are the detection counts at which the owner is alerted.
var alertThresholds = map[int]bool{1: true, 10: true, 100: true}

// Classify maps a detection count to its risk tier.
// A count of zero (or below) has no risk; any detection is at least low.
// Reverting the last remaining detection therefore lands on RiskNone as well,
// not only ResetDetections.
func Classify(count int) RiskLevel {
	switch {
	case count >= highRiskThreshold:
		return RiskHigh
	case count >= mediumRiskThreshold:
		return RiskMedium
	case count > 0:
		return RiskLow
	default:
		return RiskNone
	}
}

// IsAlertThreshold reports whether reaching count should notify the owner.
func IsAlertThreshold(count int) bool {
	return alertThresholds[count]
}

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskNone, RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type Hive struct {
	ID             string     `json:"id" db:"id" readxs:"owner,system"`
	UserID         string     `json:"user_id" db:"user_id" readxs:"owner,system"`
	Name           string     `json:"name" db:"name" readxs:"owner,system"`
	Location       string     `json:"location" db:"location" readxs:"owner,system"`
	IsActive       bool       `json:"is_active" db:"is_active" readxs:"owner,system"`
	LastActivation *time.Time `json:"last_activation" db:"last_activation" readxs:"owner,system"`
	DetectionCount int        `json:"detection_count" db:"detection_count" readxs:"owner,system"`
	RiskLevel      RiskLevel  `json:"risk_level" db:"risk_level" readxs:"owner,system"`
	LastDetection  *time.Time `json:"last_detection" db:"last_detection" readxs:"owner,system"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at" readxs:"system"`
}

// DisplayName falls back to the hive id when no name was set.
func (h *Hive) DisplayName() string {
	if h.Name == "" {
		return h.ID
	}
	return h.Name
}

// Activate marks the hive active and refreshes its activation stamp.
func (h *Hive) Activate(at time.Time) {
	h.IsActive = true
	h.LastActivation = &at
}

// ApplyDetection records one detection at the given time.
func (h *Hive) ApplyDetection(at time.Time) {
	if h.DetectionCount < 0 {
		h.DetectionCount = 0
	}
	h.DetectionCount++
	h.RiskLevel = Classify(h.DetectionCount)
	h.LastDetection = &at
}

// RevertDetection undoes one detection. The counter never drops below zero.
func (h *Hive) RevertDetection() {
	if h.DetectionCount > 0 {
		h.DetectionCount--
	} else {
		h.DetectionCount = 0
	}
	h.RiskLevel = Classify(h.DetectionCount)
}

// ResetDetections clears the counter, the risk tier and the last detection.
func (h *Hive) ResetDetections() {
	h.DetectionCount = 0
	h.RiskLevel = RiskNone
	h.LastDetection = nil
}

// IsStale reports whether an active hive was last activated before cutoff.
func (h *Hive) IsStale(cutoff time.Time) bool {
	return h.IsActive && h.LastActivation != nil && h.LastActivation.Before(cutoff)
}
