package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/pipeline"
	"github.com/xxxsen/docqa/internal/pkg/errcode"
	"github.com/xxxsen/docqa/internal/pkg/response"
)

// documentList accepts a single URL string or a list of URL strings.
type documentList []string

func (d *documentList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = documentList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("documents must be a string or a list of strings")
	}
	*d = documentList(many)
	return nil
}

type runRequest struct {
	Documents documentList `json:"documents"`
	Questions []string     `json:"questions"`
	Verbose   bool         `json:"verbose"`
}

type RunHandler struct {
	orch *pipeline.Orchestrator
}

func NewRunHandler(orch *pipeline.Orchestrator) *RunHandler {
	return &RunHandler{orch: orch}
}

// Run answers a batch of questions against a batch of documents. Once
// the request validates, the response is always 200 with one answer per
// question; pipeline failures surface as fallback answer text.
func (h *RunHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.Documents) == 0 {
		response.BadRequest(c, errcode.ErrInvalid, "documents is required")
		return
	}
	if len(req.Questions) == 0 {
		response.BadRequest(c, errcode.ErrInvalid, "questions is required")
		return
	}
	for _, q := range req.Questions {
		if q == "" {
			response.BadRequest(c, errcode.ErrInvalid, "questions must be non-empty")
			return
		}
	}

	result := h.orch.Run(c.Request.Context(), []string(req.Documents), req.Questions)
	if req.Verbose {
		c.JSON(http.StatusOK, gin.H{
			"answers":   result.Answers,
			"documents": result.Documents,
			"details":   result.Details,
			"metadata":  result.Metadata,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": result.Answers})
}
