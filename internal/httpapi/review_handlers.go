package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/review"
)

func handleCreateReview(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in review.CreateInput
		if !bind(c, &in) {
			return
		}
		r, err := d.Reviews.Create(c.Request.Context(), auth.CurrentUser(c), in)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusCreated, "Review created successfully", gin.H{"review": r})
	}
}

func handleLawyerReviews(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Reviews.ForLawyer(c.Request.Context(), c.Param("lawyerId"),
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleMyReviews(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Reviews.Mine(c.Request.Context(), auth.CurrentUser(c),
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}
