package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportJobStatus string

const (
	ImportJobPending   ImportJobStatus = "pending"
	ImportJobRunning   ImportJobStatus = "running"
	ImportJobSucceeded ImportJobStatus = "succeeded"
	ImportJobFailed    ImportJobStatus = "failed"
)

// ImportJob arka planda çalışan toplu içe aktarma işi.
type ImportJob struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Collection string          `gorm:"size:50;not null;index" json:"collection"`
	FileName   string          `gorm:"size:255" json:"file_name"`
	RowCount   int             `json:"row_count"`
	Status     ImportJobStatus `gorm:"size:20;not null;index" json:"status"`
	Summary    datatypes.JSON  `json:"summary"`
	Error      string          `gorm:"type:text" json:"error"`
	UserID     *uint           `json:"user_id"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
}
