package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/models"
)

// registerRoutes sets up every API route on the Gin router.
func registerRoutes(router *gin.Engine, d Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "API is running"})
	})
	if d.Socket != nil {
		router.GET("/ws", gin.WrapH(d.Socket))
	}

	api := router.Group("/api")
	requireUser := auth.RequireUser(d.DB, d.Issuer)
	clientOnly := auth.RequireRole(models.RoleClient)
	lawyerOnly := auth.RequireRole(models.RoleLawyer)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", handleRegister(d))
	authGroup.POST("/login", handleLogin(d))
	authGroup.GET("/me", requireUser, handleMe(d))

	appts := api.Group("/appointments", requireUser)
	appts.POST("", clientOnly, handleCreateAppointment(d))
	appts.GET("/mine", handleMyAppointments(d))
	appts.GET("/history", handleAppointmentHistory(d))
	appts.GET("/:id", handleGetAppointment(d))
	appts.PATCH("/:id/propose", lawyerOnly, handlePropose(d))
	appts.PATCH("/:id/accept", lawyerOnly, handleAccept(d))
	appts.PATCH("/:id/reject", lawyerOnly, handleReject(d))
	appts.PATCH("/:id/confirm", handleConfirm(d))
	appts.PATCH("/:id/complete", lawyerOnly, handleComplete(d))
	appts.PATCH("/:id/cancel", clientOnly, handleCancel(d))

	chatGroup := api.Group("/chat", requireUser)
	chatGroup.GET("/conversations", handleConversations(d))
	chatGroup.GET("/conversation/find/:userId", handleFindConversation(d))
	chatGroup.GET("/conversations/:id/messages", handleMessages(d))

	notes := api.Group("/notifications", requireUser)
	notes.GET("", handleNotifications(d))
	notes.PATCH("/read-all", handleMarkAllRead(d))
	notes.PATCH("/:id/read", handleMarkRead(d))
	notes.DELETE("/clear-all", handleClearAll(d))

	docs := api.Group("/documents", requireUser)
	docs.POST("/upload", handleUploadDocument(d))
	docs.GET("/mine", handleMyDocuments(d))
	docs.GET("/shared/:userId", handleSharedDocuments(d))
	docs.GET("/:id", handleGetDocument(d))
	docs.GET("/:id/download", handleDownloadDocument(d))
	docs.DELETE("/:id", handleDeleteDocument(d))

	reviews := api.Group("/reviews")
	reviews.POST("", requireUser, clientOnly, handleCreateReview(d))
	reviews.GET("/lawyer/:lawyerId", handleLawyerReviews(d))
	reviews.GET("/mine", requireUser, handleMyReviews(d))

	lawyers := api.Group("/lawyers")
	lawyers.GET("", handleListLawyers(d))
	lawyers.GET("/my-clients", requireUser, lawyerOnly, handleMyClients(d))
	lawyers.GET("/:id", handleGetLawyer(d))
	lawyers.PATCH("/profile", requireUser, lawyerOnly, handleUpdateLawyerProfile(d))

	verification := api.Group("/verification", requireUser, lawyerOnly)
	verification.POST("/request", handleSubmitVerification(d))
	verification.GET("/request/status", handleVerificationStatus(d))

	admin := api.Group("/admin", requireUser, adminOnly)
	admin.GET("/verification/requests", handleVerificationRequests(d))
	admin.PATCH("/verification/requests/:id/reject", handleRejectVerification(d))
	admin.PATCH("/lawyers/:id/verify", handleVerifyLawyer(d))
}
