package httptransport

import (
	"github.com/gin-gonic/gin"

	apierrors "botdash-server-go/internal/platform/errors"
)

// RespondError translates any error through the taxonomy and writes the
// JSON envelope with its mapped status. exposeCause controls whether
// internal error detail reaches the client.
func RespondError(c *gin.Context, err error, exposeCause bool) {
	typed := apierrors.From(err)
	c.JSON(typed.Status, typed.ToResponse(exposeCause))
}
