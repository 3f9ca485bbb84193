package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/shared/server/flash"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// View renders a page payload with the pending flash messages attached.
func View(c *gin.Context, status int, title string, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["title"] = title
	payload["flashes"] = flash.Pop(c)
	c.JSON(status, payload)
}

// Redirect flashes message (when non-empty) and redirects to location.
// POST requests get 303 so the browser follows with a GET.
func Redirect(c *gin.Context, location, category, message string) {
	if message != "" {
		flash.Add(c, category, message)
	}
	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, location)
	c.Abort()
}
