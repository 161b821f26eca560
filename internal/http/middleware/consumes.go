package middleware

import (
	"mime"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-email-collector/internal/fault"
)

// Consumes restricts a route to request bodies of the given media types.
//
// Behavior:
//   - Parameters such as charset are ignored when matching and the
//     comparison is case-insensitive.
//   - A missing Content-Type counts as application/octet-stream.
//   - Any other type is recorded as a fault.MediaTypeError carrying the
//     supported list, and the request is aborted before the handler runs.
//     The error classifier answers with 415.
func Consumes(types ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return func(c *gin.Context) {
		raw := c.GetHeader("Content-Type")
		if strings.TrimSpace(raw) == "" {
			raw = "application/octet-stream"
		}
		mt, _, err := mime.ParseMediaType(raw)
		if err != nil {
			mt = strings.TrimSpace(raw)
		}
		if _, ok := allowed[strings.ToLower(mt)]; ok {
			c.Next()
			return
		}
		_ = c.Error(&fault.MediaTypeError{ContentType: mt, Supported: types})
		c.Abort()
	}
}
