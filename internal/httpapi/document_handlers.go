package httpapi

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/document"
	"github.com/sujalkunwar22/backend/internal/models"
)

// multipartSlack covers the form fields and boundaries around the file.
const multipartSlack = 1 << 20

func handleUploadDocument(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, d.Documents.MaxSize()+multipartSlack)
		fh, err := c.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				fail(c, apperr.Validationf("File exceeds the %d MB limit", d.Documents.MaxSize()>>20))
				return
			}
			fail(c, apperr.Validationf("No file uploaded"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()

		up, err := d.Documents.Upload(c.Request.Context(), auth.CurrentUser(c), document.UploadInput{
			AppointmentID: c.PostForm("appointmentId"),
			Description:   c.PostForm("description"),
			Category:      models.DocumentCategory(c.PostForm("category")),
			OriginalName:  fh.Filename,
			Body:          f,
		})
		if err != nil {
			fail(c, err)
			return
		}
		msg := "Document uploaded successfully"
		if up.Reused {
			msg = "Document uploaded successfully (reused existing file)"
		}
		okMessage(c, http.StatusCreated, msg, gin.H{"document": up.Document})
	}
}

func handleMyDocuments(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Documents.Mine(c.Request.Context(), auth.CurrentUser(c), document.Filter{
			AppointmentID: c.Query("appointmentId"),
			Category:      models.DocumentCategory(c.Query("category")),
		}, queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleSharedDocuments(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := d.Documents.Shared(c.Request.Context(), auth.CurrentUser(c), c.Param("userId"),
			queryInt(c, "page"), queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

func handleGetDocument(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := d.Documents.Get(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"document": doc})
	}
}

func handleDownloadDocument(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, rc, err := d.Documents.Open(c.Request.Context(), c.Param("id"), auth.CurrentUser(c))
		if err != nil {
			fail(c, err)
			return
		}
		defer rc.Close()
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName})
		c.DataFromReader(http.StatusOK, doc.FileSize, doc.MimeType, rc, map[string]string{
			"Content-Disposition": disposition,
		})
	}
}

func handleDeleteDocument(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Documents.Delete(c.Request.Context(), c.Param("id"), auth.CurrentUser(c)); err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Document deleted successfully", nil)
	}
}
