// Package types holds the shared domain model for the distillation pipeline.
package types

import "strings"

// PathSeparator joins ancestor labels in a tag path.
// Every stored path begins with the project display name.
const PathSeparator = " > "

// Tag is one node of the distillation tree.
// Root tags have an empty ParentID; they are children of the implicit
// project node.
type Tag struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ParentID string `json:"parentId,omitempty"`
	Path     string `json:"path"`
}

// PathRoot returns the first segment of the tag path, which is expected
// to be the project display name.
func (t Tag) PathRoot() string {
	if i := strings.Index(t.Path, PathSeparator); i >= 0 {
		return t.Path[:i]
	}
	return t.Path
}

// Question is generated against a leaf tag. Answered flips to true once a
// single-turn dataset record exists for it.
type Question struct {
	ID       string `json:"id"`
	TagID    string `json:"tagId"`
	TagLabel string `json:"tagLabel"`
	Text     string `json:"text"`
	Answered bool   `json:"answered"`
}

// DatasetRecord is the single-turn answer for one question.
type DatasetRecord struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	Model      string `json:"model"`
	Confirmed  bool   `json:"confirmed"`
}

// ConversationTurn is one exchange inside a multi-turn conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MultiTurnConversation is the multi-turn dataset for one question.
// At most one exists per question; existence is tested by membership in
// the fetched conversation ID set, never by a local flag.
type MultiTurnConversation struct {
	QuestionID string             `json:"questionId"`
	Scenario   string             `json:"scenario"`
	RoleA      string             `json:"roleA"`
	RoleB      string             `json:"roleB"`
	Rounds     int                `json:"rounds"`
	Turns      []ConversationTurn `json:"turns"`
}

// MultiTurnConfig is the project-level configuration required before any
// multi-turn generation may start. Scenario, RoleA and RoleB must be
// non-empty and Rounds must be at least 1.
type MultiTurnConfig struct {
	SystemPrompt string `json:"systemPrompt"`
	Scenario     string `json:"scenario"`
	Rounds       int    `json:"rounds"`
	RoleA        string `json:"roleA"`
	RoleB        string `json:"roleB"`
}

// Valid reports whether the required multi-turn fields are present.
func (c MultiTurnConfig) Valid() bool {
	return strings.TrimSpace(c.Scenario) != "" &&
		strings.TrimSpace(c.RoleA) != "" &&
		strings.TrimSpace(c.RoleB) != "" &&
		c.Rounds >= 1
}

// Project is the minimal project view the pipeline needs.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DatasetType selects which answer tracks a distillation run produces.
type DatasetType string

const (
	DatasetSingleTurn DatasetType = "single-turn"
	DatasetMultiTurn  DatasetType = "multi-turn"
	DatasetBoth       DatasetType = "both"
)

// WantsSingleTurn reports whether the single-turn track is enabled.
func (d DatasetType) WantsSingleTurn() bool {
	return d == DatasetSingleTurn || d == DatasetBoth
}

// WantsMultiTurn reports whether the multi-turn track is enabled.
func (d DatasetType) WantsMultiTurn() bool {
	return d == DatasetMultiTurn || d == DatasetBoth
}

// JobConfig drives one distillation run. It is immutable for the duration
// of the run; every stage receives it by value.
type JobConfig struct {
	ProjectID        string      `json:"projectId"`
	Topic            string      `json:"topic"`
	Levels           int         `json:"levels"`
	TagsPerLevel     int         `json:"tagsPerLevel"`
	QuestionsPerTag  int         `json:"questionsPerTag"`
	DatasetType      DatasetType `json:"datasetType"`
	ConcurrencyLimit int         `json:"concurrencyLimit"`
	Model            string      `json:"model"`
	Language         string      `json:"language"`
}

// Normalized returns a copy with defaults applied to out-of-range knobs.
// The model field is left untouched; a missing model is a fatal
// precondition checked by the orchestrator, not a defaultable value.
func (c JobConfig) Normalized() JobConfig {
	if c.Levels <= 0 {
		c.Levels = 2
	}
	if c.TagsPerLevel <= 0 {
		c.TagsPerLevel = 10
	}
	if c.QuestionsPerTag <= 0 {
		c.QuestionsPerTag = 10
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = 5
	}
	switch c.DatasetType {
	case DatasetSingleTurn, DatasetMultiTurn, DatasetBoth:
	default:
		c.DatasetType = DatasetSingleTurn
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = "English"
	}
	return c
}

// JoinPath appends a label to an existing tag path.
func JoinPath(base, label string) string {
	base = strings.TrimSpace(base)
	label = strings.TrimSpace(label)
	if base == "" {
		return label
	}
	if label == "" {
		return base
	}
	return base + PathSeparator + label
}
