package controller

import (
	"docinsight-backend/model"
	"docinsight-backend/request"
	"docinsight-backend/response"
	"docinsight-backend/service/analysis"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PromptController struct {
	analysis *analysis.Service
}

func NewPromptController(svc *analysis.Service) *PromptController {
	return &PromptController{analysis: svc}
}

func (pc *PromptController) List(c *gin.Context) {
	templates, err := pc.analysis.ListTemplates(c.Request.Context())
	if err != nil {
		abortWithError(c, ErrGetPromptTemplates, err)
		return
	}
	if templates == nil {
		templates = []model.PromptTemplate{}
	}

	c.JSON(http.StatusOK, response.Response{
		Data: templates,
	})
}

func (pc *PromptController) Create(c *gin.Context) {
	var req request.PromptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithParseError(c, err)
		return
	}

	tmpl, err := pc.analysis.CreateTemplate(c.Request.Context(), templateInput(req))
	if err != nil {
		abortWithError(c, ErrCreatePromptTemplate, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: tmpl,
	})
}

func (pc *PromptController) Get(c *gin.Context) {
	tmpl, err := pc.analysis.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetPromptTemplate, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: tmpl,
	})
}

func (pc *PromptController) Update(c *gin.Context) {
	var req request.PromptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithParseError(c, err)
		return
	}

	tmpl, err := pc.analysis.UpdateTemplate(c.Request.Context(), c.Param("id"), templateInput(req))
	if err != nil {
		abortWithError(c, ErrUpdatePromptTemplate, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: tmpl,
	})
}

func (pc *PromptController) Delete(c *gin.Context) {
	if err := pc.analysis.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, ErrDeletePromptTemplate, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Msg: "prompt template deleted",
	})
}

// Initialize 写入内置模板，已存在的同名模板不会重复创建
func (pc *PromptController) Initialize(c *gin.Context) {
	created, err := pc.analysis.InitializeDefaults(c.Request.Context())
	if err != nil {
		abortWithError(c, ErrInitializePrompts, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.InitializePromptsResponse{Created: created},
	})
}

func templateInput(req request.PromptTemplateRequest) analysis.TemplateInput {
	return analysis.TemplateInput{
		Name:          req.Name,
		Description:   req.Description,
		PromptText:    req.PromptText,
		Category:      req.Category,
		Variables:     req.Variables,
		ExampleOutput: req.ExampleOutput,
		IsPublic:      req.IsPublic,
	}
}
