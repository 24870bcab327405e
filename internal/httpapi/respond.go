package httpapi

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/apperr"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func okMessage(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// fail writes err in the stable error shape. Internal errors are logged and
// their message replaced.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Printf("httpapi: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"success": false, "message": apperr.PublicMessage(err)}
	if e, ok := apperr.As(err); ok {
		if e.Code != "" {
			body["error"] = e.Code
		}
		for k, v := range e.Fields {
			body[k] = v
		}
	}
	c.JSON(kind.HTTPStatus(), body)
}

// bind decodes the JSON body into v.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, apperr.Validationf("Invalid request body"))
		return false
	}
	return true
}

// bindOptional is bind for routes whose body may be empty.
func bindOptional(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		fail(c, apperr.Validationf("Invalid request body"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
