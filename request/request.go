package request

import "docinsight-backend/model"

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type PromptTemplateRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Description   string                 `json:"description"`
	PromptText    string                 `json:"promptText" binding:"required"`
	Category      model.PromptCategory   `json:"category" binding:"required"`
	Variables     []model.PromptVariable `json:"variables"`
	ExampleOutput string                 `json:"exampleOutput"`
	IsPublic      *bool                  `json:"isPublic"`
}

type AnalyzeRequest struct {
	DocumentID       string `json:"documentId" binding:"required"`
	PromptTemplateID string `json:"promptTemplateId"`
	CustomPrompt     string `json:"customPrompt"`
}
