package models

// Report lifecycle statuses.
const (
	ReportStatusDraft     = "draft"
	ReportStatusAnalyzing = "analyzing"
	ReportStatusCompleted = "completed"
	ReportStatusPublished = "published"
)

// AudioFile STT statuses.
const (
	STTStatusPending    = "pending"
	STTStatusProcessing = "processing"
	STTStatusCompleted  = "completed"
	STTStatusFailed     = "failed"
)

// AudioFile upload statuses.
const (
	UploadStatusUploaded   = "uploaded"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

func ValidReportStatus(s string) bool {
	switch s {
	case ReportStatusDraft, ReportStatusAnalyzing, ReportStatusCompleted, ReportStatusPublished:
		return true
	}
	return false
}

// CanSetReportStatus guards the administrative status overwrite.
// Published is terminal: once a report is published it stays published.
func CanSetReportStatus(from, to string) bool {
	if !ValidReportStatus(to) {
		return false
	}
	if from == ReportStatusPublished && to != ReportStatusPublished {
		return false
	}
	return true
}
