package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/appointment"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/models"
)

// rejectRequest takes the reason as rejectionReason, or reason for older clients.
type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
	Reason          string `json:"reason"`
}

func (r rejectRequest) reason() string {
	if r.RejectionReason != "" {
		return r.RejectionReason
	}
	return r.Reason
}

func appointmentResponse(c *gin.Context, status int, message string, appt *models.Appointment) {
	okMessage(c, status, message, gin.H{"appointment": appt})
}

func handleCreateAppointment(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in appointment.CreateInput
		if !bind(c, &in) {
			return
		}
		appt, err := d.Appointments.Create(c.Request.Context(), auth.CurrentUser(c), in)
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusCreated, "Appointment request created successfully", appt)
	}
}

func handleMyAppointments(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Appointments.Mine(c.Request.Context(), auth.CurrentUser(c),
			c.Query("status"), queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleAppointmentHistory(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Appointments.History(c.Request.Context(), auth.CurrentUser(c),
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleGetAppointment(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, err := d.Appointments.Get(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"appointment": appt})
	}
}

func handlePropose(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in appointment.ProposeInput
		if !bind(c, &in) {
			return
		}
		appt, err := d.Appointments.Propose(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), in)
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusOK, "Time proposed successfully", appt)
	}
}

func handleAccept(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, err := d.Appointments.Accept(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusOK, "Appointment accepted successfully", appt)
	}
}

// handleReject accepts an empty body; the reason is optional.
func handleReject(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in rejectRequest
		if !bindOptional(c, &in) {
			return
		}
		appt, err := d.Appointments.Reject(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), in.reason())
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusOK, "Appointment rejected successfully", appt)
	}
}

func handleConfirm(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, err := d.Appointments.Confirm(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		msg := "Your confirmation has been recorded"
		if appt.Status == models.StatusConfirmed {
			msg = "Appointment confirmed by both parties"
		}
		appointmentResponse(c, http.StatusOK, msg, appt)
	}
}

func handleComplete(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, err := d.Appointments.Complete(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusOK, "Consultation completed successfully", appt)
	}
}

func handleCancel(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, err := d.Appointments.Cancel(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		appointmentResponse(c, http.StatusOK, "Appointment cancelled successfully", appt)
	}
}
