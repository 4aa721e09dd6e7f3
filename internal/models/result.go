package models

type AnalyzeResponse struct {
	SessionID string           `json:"session_id"`
	State     string           `json:"state"`
	Rerun     bool             `json:"rerun"`
	Results   []RenderedResult `json:"results"`
	Errors    []FileError      `json:"errors"`
}

type ResultsResponse struct {
	SessionID         string           `json:"session_id"`
	State             string           `json:"state"`
	AnalysisCompleted bool             `json:"analysis_completed"`
	Results           []RenderedResult `json:"results"`
	Example           string           `json:"example,omitempty"`
}

type FeedbackRequest struct {
	Positive *bool `json:"positive"`
}

type FeedbackResponse struct {
	CVName    string `json:"cv_name"`
	MessageID string `json:"message_id"`
	Positive  bool   `json:"positive"`
	Message   string `json:"message"`
}

type JobCriteriaUpdateResponse struct {
	Message     string      `json:"message"`
	BlobName    string      `json:"blob_name"`
	JobCriteria JobCriteria `json:"job_criteria"`
}
