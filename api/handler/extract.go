package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/pipeline"
)

// Extract returns a handler for POST /api/v1/extract, which runs the
// extractor over markup the caller already rendered.
func Extract(runner Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body models.ExtractBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := runner.Process(c.Request.Context(), models.RenderedPage{HTML: body.HTML}, pipeline.Job{})
		resp := res.Response(err)
		if err != nil {
			c.JSON(statusFor(resp.Error.Code), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
