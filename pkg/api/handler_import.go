package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contactminer/engine/pkg/importpipeline"
)

type startImportRequest struct {
	Tags       []string `json:"tags"`
	CreateList bool     `json:"create_list"`
	ListName   string   `json:"list_name"`
}

// StartImport handles POST /api/mining/jobs/:id/import-all (§6, §4.11).
func (s *Server) StartImport(c *gin.Context) {
	jobID := c.Param("id")
	tenantID := c.GetString(tenantIDKey)

	var req startImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.importer.StartImport(c.Request.Context(), jobID, tenantID, importpipeline.Request{
		Tags: req.Tags, CreateList: req.CreateList, ListName: req.ListName,
	})
	switch {
	case errors.Is(err, importpipeline.ErrJobNotFound):
		respondError(c, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, importpipeline.ErrImportInProgress):
		respondError(c, http.StatusConflict, "import already in progress")
		return
	case errors.Is(err, importpipeline.ErrListNameTaken):
		respondError(c, http.StatusConflict, "list name already in use")
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, "start import: "+err.Error())
		return
	}

	body := gin.H{
		"status":          result.Status,
		"job_id":          result.JobID,
		"total_to_import": result.TotalToImport,
		"tags_applied":    result.TagsApplied,
	}
	if result.ListCreated {
		body["list_created"] = true
		body["list_id"] = result.ListID
	}
	c.JSON(http.StatusAccepted, body)
}

// ImportPreview handles GET /api/mining/jobs/:id/import-preview (§6).
func (s *Server) ImportPreview(c *gin.Context) {
	jobID := c.Param("id")
	tenantID := c.GetString(tenantIDKey)

	var total, withEmail, importable, alreadyImported int
	err := s.db.QueryRowContext(c.Request.Context(), `
		SELECT
			count(*),
			count(*) FILTER (WHERE array_length(emails, 1) > 0),
			count(*) FILTER (WHERE array_length(emails, 1) > 0 AND status != 'imported'),
			count(*) FILTER (WHERE status = 'imported')
		FROM result_rows
		WHERE job_id = $1 AND tenant_id = $2`,
		jobID, tenantID,
	).Scan(&total, &withEmail, &importable, &alreadyImported)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "import preview: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_results":    total,
		"with_email":       withEmail,
		"importable":       importable,
		"already_imported": alreadyImported,
		"without_email":    total - withEmail,
	})
}
