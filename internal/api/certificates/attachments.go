// attachments.go implements certificate attachment upload and download against the
// configured storage backend.
package certificates

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/storage"
	"github.com/outstaff/outstaff/internal/validation"
)

// AttachmentURLTTL is how long a backend-issued download URL stays valid
const AttachmentURLTTL = 15 * time.Minute

// multipartOverhead is allowed on top of the file size for form boundaries and headers
const multipartOverhead = 1 << 20

func (h *CertificateHandlers) maxUploadBytes() int64 {
	if h.cfg != nil && h.cfg.Server.MaxUploadMB > 0 {
		return h.cfg.Server.MaxUploadMB << 20
	}
	return validation.DefaultMaxAttachmentSize
}

// @Summary      Upload attachment
// @Description  Stores a scan of the certificate. PDF, common image formats and plain text are accepted. A previous attachment is replaced.
// @Tags         Certificates
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        org_id          path      int   true  "Organization ID"
// @Param        certificate_id  path      int   true  "Certificate ID"
// @Param        file            formData  file  true  "Attachment"
// @Success      201  {object}  models.Certificate
// @Failure      400  {object}  map[string]interface{}  "Missing, oversized or unsupported file"
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Failure      503  {object}  map[string]interface{}  "No storage backend"
// @Router       /api/v1/orgs/{org_id}/certificates/{certificate_id}/attachment [post]
// UploadAttachmentHandler stores a certificate attachment
// POST /api/v1/orgs/:org_id/certificates/:certificate_id/attachment
func (h *CertificateHandlers) UploadAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		if h.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Attachment storage is not configured"})
			return
		}
		cert, ok := h.loadCertificate(c, orgID)
		if !ok {
			return
		}
		if !canManage(actor, cert) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		maxBytes := h.maxUploadBytes()
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			apiutil.BadRequest(c, "Missing or invalid file upload")
			return
		}
		defer file.Close()

		if err := validation.ValidateAttachmentName(header.Filename); err != nil {
			apiutil.BadRequest(c, "Invalid attachment: "+err.Error())
			return
		}
		if err := validation.ValidateAttachmentSize(header.Size, maxBytes); err != nil {
			apiutil.BadRequest(c, "Invalid attachment: "+err.Error())
			return
		}
		contentType, body, err := validation.DetectAttachmentType(file)
		if err != nil {
			apiutil.BadRequest(c, "Invalid attachment: "+err.Error())
			return
		}

		ctx := c.Request.Context()
		key := storage.AttachmentKey(orgID, cert.ID, header.Filename)
		obj, err := h.store.Put(ctx, key, body, header.Size, contentType)
		if err != nil {
			slog.Error("failed to store certificate attachment", "certificate_id", cert.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store attachment"})
			return
		}
		if err := h.certRepo.SetAttachment(ctx, orgID, cert.ID, obj.Key); err != nil {
			if delErr := h.store.Delete(ctx, obj.Key); delErr != nil {
				slog.Warn("failed to clean up orphaned attachment", "key", obj.Key, "error", delErr)
			}
			apiutil.Fail(c, err, "Certificate", "Failed to save attachment")
			return
		}

		if previous := cert.AttachmentURL; previous != nil && *previous != obj.Key {
			if err := h.store.Delete(ctx, *previous); err != nil {
				slog.Warn("failed to delete replaced attachment", "key", *previous, "error", err)
			}
		}
		cert.AttachmentURL = &obj.Key
		cert.UpdatedAt = h.now()

		h.activity.Record(orgID, actor.UserID, "Uploaded a certificate attachment")
		c.JSON(http.StatusCreated, cert)
	}
}

// @Summary      Download attachment
// @Description  Redirects to a short-lived backend URL when the backend issues one, otherwise streams the file.
// @Tags         Certificates
// @Security     Bearer
// @Produce      octet-stream
// @Param        org_id          path  int  true  "Organization ID"
// @Param        certificate_id  path  int  true  "Certificate ID"
// @Success      200  {file}    binary
// @Success      302  {string}  string  "Redirect to the stored object"
// @Failure      404  {object}  map[string]interface{}  "No attachment"
// @Router       /api/v1/orgs/{org_id}/certificates/{certificate_id}/attachment [get]
// DownloadAttachmentHandler serves a certificate attachment
// GET /api/v1/orgs/:org_id/certificates/:certificate_id/attachment
func (h *CertificateHandlers) DownloadAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		if h.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Attachment storage is not configured"})
			return
		}
		cert, ok := h.loadCertificate(c, orgID)
		if !ok {
			return
		}
		if !canManage(actor, cert) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if cert.AttachmentURL == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
			return
		}
		key := *cert.AttachmentURL
		ctx := c.Request.Context()

		url, err := h.store.DownloadURL(ctx, key, AttachmentURLTTL)
		if err == nil {
			c.Redirect(http.StatusFound, url)
			return
		}
		if !errors.Is(err, storage.ErrNoURL) {
			slog.Error("failed to sign attachment url", "key", key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve attachment"})
			return
		}

		reader, obj, err := h.store.Open(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
			return
		}
		if err != nil {
			slog.Error("failed to open attachment", "key", key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve attachment"})
			return
		}
		defer reader.Close()

		contentType := obj.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.DataFromReader(http.StatusOK, obj.Size, contentType, reader, map[string]string{
			"Content-Disposition": `attachment; filename="` + downloadName(key) + `"`,
		})
	}
}

// downloadName strips the uuid prefix AttachmentKey adds to the stored filename
func downloadName(key string) string {
	name := path.Base(key)
	// uuid is 36 characters followed by '-'
	if len(name) > 37 && name[36] == '-' {
		name = name[37:]
	}
	return strings.ReplaceAll(name, `"`, "")
}
