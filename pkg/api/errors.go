package api

import "github.com/gin-gonic/gin"

// respondError writes the error envelope used across every handler in this
// package, matching the teacher's consistent `{"error": "..."}` shape.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
