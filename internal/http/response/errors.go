package response

import (
	"github.com/gin-gonic/gin"

	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

// RespondAPIError writes err in the error envelope. Unclassified errors become
// INTERNAL_ERROR; the underlying cause is logged, never returned.
func RespondAPIError(c *gin.Context, log *logger.Logger, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.Internal(nil)
	}
	if log != nil {
		fields := []interface{}{"status", ae.Status, "code", ae.Code, "path", c.FullPath()}
		if ae.Err != nil {
			fields = append(fields, "error", ae.Err)
		}
		if ae.Status >= 500 {
			log.Error("request failed", fields...)
		} else {
			log.Debug("request rejected", fields...)
		}
	}
	_ = c.Error(err)
	RespondError(c, ae.Status, ae.Code, ae.Message, ae.Details)
}
