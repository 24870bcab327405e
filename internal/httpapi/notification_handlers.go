package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/notify"
)

func handleNotifications(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f notify.Filter
		if v := c.Query("isRead"); v != "" {
			read, err := strconv.ParseBool(v)
			if err != nil {
				fail(c, apperr.Validationf("isRead must be true or false"))
				return
			}
			f.IsRead = &read
		}
		page, err := d.Notifications.List(c.Request.Context(), auth.CurrentUser(c).ID, f,
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleMarkRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			fail(c, apperr.NotFoundf("Notification not found"))
			return
		}
		n, err := d.Notifications.MarkRead(c.Request.Context(), uint(id), auth.CurrentUser(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Notification marked as read", gin.H{"notification": n})
	}
}

func handleMarkAllRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := d.Notifications.MarkAllRead(c.Request.Context(), auth.CurrentUser(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "All notifications marked as read", gin.H{"updatedCount": n})
	}
}

func handleClearAll(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := d.Notifications.ClearAll(c.Request.Context(), auth.CurrentUser(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "All notifications cleared", gin.H{"deletedCount": n})
	}
}
