package core

import "github.com/gin-gonic/gin"

// respondDetail sends the unified error payload {"detail": "..."}.
func respondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// respondMessage sends the unified success payload {"message": "..."}.
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}
