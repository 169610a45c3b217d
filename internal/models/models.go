package models

import "time"

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSent       JobStatus = "sent"
	StatusFailed     JobStatus = "failed"
)

// JobPayload is the delivery contract with upstream producers. Recipient is
// either a bare phone number (all digits) or a WhatsApp group display name.
type JobPayload struct {
	Recipient    string `firestore:"recipient" json:"recipient"`
	Message      string `firestore:"message" json:"message"`
	FileData     string `firestore:"fileData,omitempty" json:"fileData,omitempty"`
	FileMimetype string `firestore:"fileMimetype,omitempty" json:"fileMimetype,omitempty"`
	FileName     string `firestore:"fileName,omitempty" json:"fileName,omitempty"`
}

// Job is one document in the notification_queue collection. Jobs are never
// deleted by the worker; terminal rows stay behind as an audit trail.
type Job struct {
	ID           string                 `firestore:"-"`
	Payload      JobPayload             `firestore:"payload"`
	Status       JobStatus              `firestore:"status"`
	Type         string                 `firestore:"type"`
	Metadata     map[string]interface{} `firestore:"metadata"`
	ErrorMessage string                 `firestore:"errorMessage"`
	CreatedAt    time.Time              `firestore:"createdAt"`
	UpdatedAt    time.Time              `firestore:"updatedAt"`
}

// ManualTrigger is one document in the manual_triggers collection. Month is
// zero-based (0 = January), matching the dashboard's convention.
type ManualTrigger struct {
	ID           string `firestore:"-"`
	Type         string `firestore:"type"`
	Year         int64  `firestore:"year"`
	Month        int64  `firestore:"month"`
	Target       string `firestore:"target"`
	Status       string `firestore:"status"`
	ErrorMessage string `firestore:"errorMessage,omitempty"`
}

const TriggerMonthlyRecap = "monthly_recap"

type Class struct {
	ID                string `firestore:"-"`
	Name              string `firestore:"name"`
	Grade             string `firestore:"grade"`
	WhatsappGroupName string `firestore:"whatsappGroupName"`
}

type Student struct {
	ID      string `firestore:"-"`
	Nama    string `firestore:"nama"`
	ClassID string `firestore:"classId"`
	Status  string `firestore:"status"`
}

const StudentActive = "active"

// AttendanceRecord holds one student-day. RecordDate is the day at local
// midnight; TimestampPulang stays nil until the student checks out.
type AttendanceRecord struct {
	StudentID       string     `firestore:"studentId"`
	RecordDate      time.Time  `firestore:"recordDate"`
	Status          string     `firestore:"status"`
	TimestampPulang *time.Time `firestore:"timestampPulang"`
}

type Holiday struct {
	Name      string    `firestore:"name,omitempty"`
	StartDate time.Time `firestore:"startDate"`
	EndDate   time.Time `firestore:"endDate"`
}

// SchoolHours mirrors the settings/schoolHours document, times as "HH:MM".
type SchoolHours struct {
	JamMasuk  string `firestore:"jamMasuk"`
	JamPulang string `firestore:"jamPulang"`
}

// ReportConfig mirrors the settings/reportConfig document. The fields are
// letterhead and signatory copy for the recap PDF; the worker never
// interprets them.
type ReportConfig struct {
	SchoolName    string `firestore:"schoolName"`
	PrincipalName string `firestore:"principalName"`
	PrincipalNIP  string `firestore:"principalNip"`
}
