package models

// JobCriteriaBlobName is the single well-known object the remote
// analysis service reads its evaluation criteria from.
const JobCriteriaBlobName = "job_criteria.json"

type JobCriteria struct {
	JobCriteriaText string `json:"job_criteria_text"`
}

type JobCriteriaPreview struct {
	FileName      string      `json:"file_name"`
	ExtractedText string      `json:"extracted_text"`
	JobCriteria   JobCriteria `json:"job_criteria"`
}
