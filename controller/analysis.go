package controller

import (
	"docinsight-backend/model"
	"docinsight-backend/request"
	"docinsight-backend/response"
	"docinsight-backend/service/analysis"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AnalysisController struct {
	analysis *analysis.Service
}

func NewAnalysisController(svc *analysis.Service) *AnalysisController {
	return &AnalysisController{analysis: svc}
}

func (ac *AnalysisController) Analyze(c *gin.Context) {
	var req request.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithParseError(c, err)
		return
	}

	result, err := ac.analysis.Analyze(c.Request.Context(), analysis.Request{
		DocumentID:       req.DocumentID,
		PromptTemplateID: req.PromptTemplateID,
		CustomPrompt:     req.CustomPrompt,
	})
	if err != nil {
		abortWithError(c, ErrAnalyzeDocument, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: result,
	})
}

func (ac *AnalysisController) ListByDocument(c *gin.Context) {
	analyses, err := ac.analysis.ListByDocument(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		abortWithError(c, ErrGetAnalysisHistory, err)
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}

	c.JSON(http.StatusOK, response.Response{
		Data: analyses,
	})
}

func (ac *AnalysisController) Get(c *gin.Context) {
	result, err := ac.analysis.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetAnalysis, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: result,
	})
}
