package constants

// JobStatus is the canonical status for rows in scan_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"   // queued for processing
	JobStatusRunning JobStatus = "RUNNING"  // in progress
	JobStatusOCROK   JobStatus = "OCR_OK"   // stage 1 completed (text recognized)
	JobStatusParseOK JobStatus = "PARSE_OK" // stage 2 completed (fields extracted)
	JobStatusFailed  JobStatus = "FAILED"   // terminal failure
)
