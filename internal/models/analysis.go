package models

// AnalysisResult is one successfully analysed CV kept in session state.
type AnalysisResult struct {
	CVName    string `json:"cv_name"`
	Analysis  string `json:"analysis"`
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
}

// FileError records a CV that was dropped from a batch.
type FileError struct {
	CVName  string `json:"cv_name"`
	Message string `json:"message"`
}

// BatchOutcome is what a single run over the uploaded files produced.
type BatchOutcome struct {
	Results   []AnalysisResult `json:"results"`
	ThreadIDs []string         `json:"thread_ids"`
	Errors    []FileError      `json:"errors"`
}

// Section names the UI renders. Everything else in the agent response
// is ignored.
const (
	SectionSummary         = "summary"
	SectionApplicantLookup = "applicant_lookup_agent"
)

// AgentSection is one entry of the agent_response array. The remote
// service serialises python objects, hence the __dict__ wrappers. Every
// level is optional and must be checked before use.
type AgentSection struct {
	Dict *AgentSectionBody `json:"__dict__"`
}

type AgentSectionBody struct {
	ChatName     string             `json:"chat_name"`
	ChatResponse *AgentChatResponse `json:"chat_response"`
}

type AgentChatResponse struct {
	ChatMessage *AgentChatMessage `json:"chat_message"`
}

type AgentChatMessage struct {
	Dict *AgentChatMessageBody `json:"__dict__"`
}

type AgentChatMessageBody struct {
	Content string `json:"content"`
}

// Name returns the section tag, or "" when the entry has no body.
func (s AgentSection) Name() string {
	if s.Dict == nil {
		return ""
	}
	return s.Dict.ChatName
}

// Content returns the markdown content and whether the entry carried one.
func (s AgentSection) Content() (string, bool) {
	if s.Dict == nil || s.Dict.ChatResponse == nil {
		return "", false
	}
	msg := s.Dict.ChatResponse.ChatMessage
	if msg == nil || msg.Dict == nil {
		return "", false
	}
	return msg.Dict.Content, true
}

// RenderedSection is a section selected for display.
type RenderedSection struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RenderedResult is an AnalysisResult prepared for display.
type RenderedResult struct {
	Index      int               `json:"index"`
	CVName     string            `json:"cv_name"`
	ThreadID   string            `json:"thread_id"`
	MessageID  string            `json:"message_id"`
	Sections   []RenderedSection `json:"sections"`
	ParseError string            `json:"parse_error,omitempty"`
}
