package httpx

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// ErrorResponse is the JSON body every failed request returns.
// swagger:model
type ErrorResponse struct {
	// stable machine-readable kind
	// example: conflict
	Kind string `json:"kind"`
	// human-readable message
	// example: order is already assigned
	Error string `json:"error"`
}

// Fail writes err with the status mapped from its apperr kind and aborts the
// handler chain. Unclassified errors become 500s with a generic body.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.Internal {
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v internal error: %v", rid, err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), ErrorResponse{Kind: string(kind), Error: msg})
}
