package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/auth"
)

func handleConversations(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := d.Chat.Conversations(c.Request.Context(), auth.CurrentUser(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"conversations": list})
	}
}

func handleFindConversation(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := d.Chat.FindOrCreate(c.Request.Context(), auth.CurrentUser(c).ID, c.Param("userId"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"conversation": conv})
	}
}

func handleMessages(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Chat.History(c.Request.Context(), auth.CurrentUser(c).ID, c.Param("id"),
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}
