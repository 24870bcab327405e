package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/lawyer"
)

func handleListLawyers(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := lawyer.ListFilter{
			Search:         c.Query("search"),
			Specialization: c.Query("specialization"),
		}
		if v := c.Query("minRating"); v != "" {
			r, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fail(c, apperr.Validationf("minRating must be a number"))
				return
			}
			f.MinRating = r
		}
		page, err := d.Lawyers.List(c.Request.Context(), f, queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleGetLawyer(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := d.Lawyers.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"lawyer": v})
	}
}

func handleUpdateLawyerProfile(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in lawyer.ProfileInput
		if !bind(c, &in) {
			return
		}
		v, err := d.Lawyers.UpdateProfile(c.Request.Context(), auth.CurrentUser(c), in)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Profile updated successfully", gin.H{"lawyer": v})
	}
}

func handleMyClients(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := d.Lawyers.Clients(c.Request.Context(), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"clients": clients, "total": len(clients)})
	}
}

func handleSubmitVerification(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := d.Lawyers.Submit(c.Request.Context(), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Verification request submitted successfully", gin.H{"verificationRequest": req})
	}
}

func handleVerificationStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := d.Lawyers.Status(c.Request.Context(), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, st)
	}
}

func handleVerificationRequests(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := d.Lawyers.Requests(c.Request.Context(), c.Query("status"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"requests": reqs, "total": len(reqs)})
	}
}

func handleRejectVerification(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			RejectionReason string `json:"rejectionReason"`
		}
		if !bindOptional(c, &in) {
			return
		}
		req, err := d.Lawyers.Reject(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), in.RejectionReason)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Verification request rejected", gin.H{"verificationRequest": req})
	}
}

func handleVerifyLawyer(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			HourlyRate *float64 `json:"hourlyRate"`
		}
		if !bindOptional(c, &in) {
			return
		}
		p, err := d.Lawyers.Approve(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), in.HourlyRate)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Lawyer verified successfully", gin.H{"lawyer": p})
	}
}
