package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// updateResultRequest is the bounded allowlist of ResultRow fields §6 lets a
// caller edit: fields the mining pipeline derives (emails, confidence,
// status, raw) are excluded; the fields a reviewer corrects by hand
// (contact metadata, verification_status) are included.
type updateResultRequest struct {
	CompanyName        *string `json:"company_name"`
	ContactName        *string `json:"contact_name"`
	JobTitle           *string `json:"job_title"`
	Phone              *string `json:"phone"`
	Country            *string `json:"country"`
	City               *string `json:"city"`
	Website            *string `json:"website"`
	VerificationStatus *string `json:"verification_status"`
}

// UpdateResult handles PATCH /api/mining/results/:id (§6).
func (s *Server) UpdateResult(c *gin.Context) {
	resultID := c.Param("id")
	tenantID := c.GetString(tenantIDKey)

	var req updateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	set := make([]string, 0, 8)
	args := []any{resultID, tenantID}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}
	add("company_name", req.CompanyName)
	add("contact_name", req.ContactName)
	add("job_title", req.JobTitle)
	add("phone", req.Phone)
	add("country", req.Country)
	add("city", req.City)
	add("website", req.Website)
	add("verification_status", req.VerificationStatus)

	if len(set) == 0 {
		respondError(c, http.StatusBadRequest, "no editable fields provided")
		return
	}

	query := "UPDATE result_rows SET updated_at = now()"
	for _, clause := range set {
		query += ", " + clause
	}
	query += ` WHERE result_id = $1 AND tenant_id = $2`

	res, err := s.db.ExecContext(c.Request.Context(), query, args...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "update result: "+err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(c, http.StatusNotFound, "result not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteResult handles DELETE /api/mining/results/:id, scoped by tenant via
// join on the owning job (§6).
func (s *Server) DeleteResult(c *gin.Context) {
	resultID := c.Param("id")
	tenantID := c.GetString(tenantIDKey)

	res, err := s.db.ExecContext(c.Request.Context(), `
		DELETE FROM result_rows
		USING jobs
		WHERE result_rows.result_id = $1
		  AND result_rows.job_id = jobs.job_id
		  AND jobs.tenant_id = $2`,
		resultID, tenantID,
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "delete result: "+err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(c, http.StatusNotFound, "result not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
