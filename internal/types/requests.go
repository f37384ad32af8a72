package types

// Request shapes for the generation collaborators. The structs double as
// the JSON input blob handed to the LLM, so field names are part of the
// prompt surface.

// GenerateTagsRequest asks for up to Count new child labels under a parent.
type GenerateTagsRequest struct {
	ParentTagID string `json:"parentTagId,omitempty"`
	ParentLabel string `json:"parentLabel"`
	TagPath     string `json:"tagPath"`
	Count       int    `json:"count"`
	Model       string `json:"model"`
	Language    string `json:"language"`
}

// GenerateQuestionsRequest asks for up to Count questions for one leaf tag.
type GenerateQuestionsRequest struct {
	TagID      string `json:"tagId"`
	TagPath    string `json:"tagPath"`
	CurrentTag string `json:"currentTag"`
	Count      int    `json:"count"`
	Model      string `json:"model"`
	Language   string `json:"language"`
}

// GenerateDatasetRequest asks for the single-turn answer to one question.
type GenerateDatasetRequest struct {
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
	TagLabel   string `json:"tagLabel,omitempty"`
	Model      string `json:"model"`
	Language   string `json:"language"`
}

// GenerateConversationRequest asks for a multi-turn conversation seeded by
// one question plus the project's scenario/role configuration.
type GenerateConversationRequest struct {
	QuestionID   string `json:"questionId"`
	Question     string `json:"question"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Scenario     string `json:"scenario"`
	Rounds       int    `json:"rounds"`
	RoleA        string `json:"roleA"`
	RoleB        string `json:"roleB"`
	Model        string `json:"model"`
	Language     string `json:"language"`
}
