// Package certificates implements certificate endpoints: the organization's certificates
// with their expiring-soon subset, certificate types, admin verification, and attachments
// kept in the configured storage backend.
package certificates

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/storage"
	"github.com/outstaff/outstaff/internal/validation"
)

// CertificateHandlers handles certificate endpoints
type CertificateHandlers struct {
	cfg      *config.Config
	db       *sqlx.DB
	certRepo *repositories.CertificateRepository
	orgRepo  *repositories.OrganizationRepository
	store    storage.Storage
	activity *services.ActivityRecorder
	now      func() time.Time
}

// NewCertificateHandlers creates a new CertificateHandlers instance. store may be nil, in
// which case the attachment endpoints answer 503.
func NewCertificateHandlers(cfg *config.Config, db *sqlx.DB, store storage.Storage, activity *services.ActivityRecorder) *CertificateHandlers {
	return &CertificateHandlers{
		cfg:      cfg,
		db:       db,
		certRepo: repositories.NewCertificateRepository(db),
		orgRepo:  repositories.NewOrganizationRepository(db),
		store:    store,
		activity: activity,
		now:      time.Now,
	}
}

// CertificateRequest is the body of POST /orgs/:org_id/certificates. UserID and Status
// are honored only for admins.
type CertificateRequest struct {
	TypeID     int64   `json:"type_id" binding:"required"`
	UserID     *int64  `json:"user_id"`
	IssueDate  *string `json:"issue_date"`
	ExpiryDate *string `json:"expiry_date"`
	Status     *string `json:"status"`
	Notes      *string `json:"notes"`
}

// TypeRequest is the body of POST /orgs/:org_id/certificates/types
type TypeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// StatusRequest is the body of PUT /orgs/:org_id/certificates/:certificate_id/status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// canManage reports whether the actor may change or remove the certificate
func canManage(actor services.Actor, cert *models.Certificate) bool {
	return actor.IsAdmin() || cert.UserID == actor.UserID
}

// loadCertificate resolves :certificate_id within the organization, answering 404 itself
func (h *CertificateHandlers) loadCertificate(c *gin.Context, orgID int64) (*models.Certificate, bool) {
	id, ok := apiutil.IDParam(c, "certificate_id", "Certificate")
	if !ok {
		return nil, false
	}
	cert, err := h.certRepo.GetByID(c.Request.Context(), orgID, id)
	if err != nil {
		apiutil.Fail(c, err, "Certificate", "Failed to load certificate")
		return nil, false
	}
	if cert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
		return nil, false
	}
	return cert, true
}

// @Summary      List certificates
// @Description  The organization's certificates, soonest expiry first, plus those expiring within 30 days.
// @Tags         Certificates
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "certificates, expiring_soon: []models.Certificate"
// @Router       /api/v1/orgs/{org_id}/certificates [get]
// ListCertificatesHandler lists the organization's certificates
// GET /api/v1/orgs/:org_id/certificates
func (h *CertificateHandlers) ListCertificatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		certs, err := h.certRepo.ListByOrg(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Certificate", "Failed to list certificates")
			return
		}

		today := h.now()
		expiring := make([]*models.Certificate, 0)
		for _, cert := range certs {
			if cert.ExpiringSoon(today) {
				expiring = append(expiring, cert)
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"certificates":  certs,
			"expiring_soon": expiring,
		})
	}
}

// @Summary      Create certificate
// @Description  Members record their own certificates as drafts. Admins may record one for any member with any status and become its verifier.
// @Tags         Certificates
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int                 true  "Organization ID"
// @Param        body    body  CertificateRequest  true  "Certificate"
// @Success      201  {object}  models.Certificate
// @Failure      400  {object}  map[string]interface{}  "Invalid input"
// @Router       /api/v1/orgs/{org_id}/certificates [post]
// CreateCertificateHandler records a certificate
// POST /api/v1/orgs/:org_id/certificates
func (h *CertificateHandlers) CreateCertificateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req CertificateRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		issue, err := validation.ParseOptionalDate("Issue date", req.IssueDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		expiry, err := validation.ParseOptionalDate("Expiry date", req.ExpiryDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if issue != nil && expiry != nil && expiry.Before(*issue) {
			apiutil.BadRequest(c, "Expiry date must not be before issue date.")
			return
		}
		notes := apiutil.TrimmedOrNil(req.Notes)
		if notes != nil {
			if err := validation.MaxLength("Notes", *notes, validation.MaxNotesLength); err != nil {
				apiutil.BadRequest(c, err.Error())
				return
			}
		}

		ctx := c.Request.Context()
		certType, err := h.certRepo.GetType(ctx, orgID, req.TypeID)
		if err != nil {
			apiutil.Fail(c, err, "Certificate type", "Failed to create certificate")
			return
		}
		if certType == nil {
			apiutil.BadRequest(c, "Unknown certificate type.")
			return
		}

		cert := &models.Certificate{
			UserID:     actor.UserID,
			OrgID:      orgID,
			TypeID:     certType.ID,
			IssueDate:  issue,
			ExpiryDate: expiry,
			Status:     models.CertificateDraft,
			Notes:      notes,
		}
		if actor.IsAdmin() {
			if req.UserID != nil && *req.UserID != actor.UserID {
				m, err := h.orgRepo.GetMembership(ctx, orgID, *req.UserID)
				if err != nil {
					apiutil.Fail(c, err, "Member", "Failed to create certificate")
					return
				}
				if m == nil || !m.IsActive() {
					apiutil.BadRequest(c, "User is not a member of this organization.")
					return
				}
				cert.UserID = *req.UserID
			}
			if req.Status != nil {
				st, err := models.ParseCertificateStatus(strings.TrimSpace(*req.Status))
				if err != nil {
					apiutil.BadRequest(c, services.MsgInvalidStatus)
					return
				}
				cert.Status = st
			}
			verifier := actor.UserID
			cert.VerifiedBy = &verifier
		}

		if err := h.certRepo.Create(ctx, cert); err != nil {
			apiutil.Fail(c, err, "Certificate", "Failed to create certificate")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Added a "+certType.Name+" certificate")
		c.JSON(http.StatusCreated, cert)
	}
}

// @Summary      List certificate types
// @Tags         Certificates
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "types: []models.CertificateType"
// @Router       /api/v1/orgs/{org_id}/certificates/types [get]
// ListTypesHandler lists the organization's certificate types
// GET /api/v1/orgs/:org_id/certificates/types
func (h *CertificateHandlers) ListTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		types, err := h.certRepo.ListTypes(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Certificate type", "Failed to list certificate types")
			return
		}
		c.JSON(http.StatusOK, gin.H{"types": types})
	}
}

// @Summary      Create certificate type
// @Tags         Certificates
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int          true  "Organization ID"
// @Param        body    body  TypeRequest  true  "Certificate type"
// @Success      201  {object}  models.CertificateType
// @Router       /api/v1/orgs/{org_id}/certificates/types [post]
// CreateTypeHandler adds a certificate type
// POST /api/v1/orgs/:org_id/certificates/types
func (h *CertificateHandlers) CreateTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req TypeRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			apiutil.BadRequest(c, "Certificate type name is required.")
			return
		}
		if err := validation.MaxLength("Certificate type name", name, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		t := &models.CertificateType{
			OrgID:       orgID,
			Name:        name,
			Description: apiutil.TrimmedOrNil(req.Description),
		}
		if err := h.certRepo.CreateType(c.Request.Context(), t); err != nil {
			apiutil.Fail(c, err, "Certificate type", "Failed to create certificate type")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Created certificate type "+t.Name)
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary      Update certificate status
// @Description  Sets the status and records the admin as verifier.
// @Tags         Certificates
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id          path  int            true  "Organization ID"
// @Param        certificate_id  path  int            true  "Certificate ID"
// @Param        body            body  StatusRequest  true  "New status"
// @Success      200  {object}  models.Certificate
// @Failure      400  {object}  map[string]interface{}  "Invalid status"
// @Failure      404  {object}  map[string]interface{}  "Certificate not found"
// @Router       /api/v1/orgs/{org_id}/certificates/{certificate_id}/status [put]
// UpdateStatusHandler verifies or re-classifies a certificate
// PUT /api/v1/orgs/:org_id/certificates/:certificate_id/status
func (h *CertificateHandlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req StatusRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		status, err := models.ParseCertificateStatus(strings.TrimSpace(req.Status))
		if err != nil {
			apiutil.BadRequest(c, services.MsgInvalidStatus)
			return
		}

		cert, ok := h.loadCertificate(c, orgID)
		if !ok {
			return
		}
		verifier := actor.UserID
		if err := h.certRepo.UpdateStatus(c.Request.Context(), orgID, cert.ID, status, &verifier); err != nil {
			apiutil.Fail(c, err, "Certificate", "Failed to update certificate")
			return
		}
		cert.Status = status
		cert.VerifiedBy = &verifier
		cert.UpdatedAt = h.now()

		h.activity.Record(orgID, actor.UserID, "Marked a certificate "+string(status))
		c.JSON(http.StatusOK, cert)
	}
}

// @Summary      Delete certificate
// @Description  The owner or an admin removes a certificate and its attachment.
// @Tags         Certificates
// @Security     Bearer
// @Param        org_id          path  int  true  "Organization ID"
// @Param        certificate_id  path  int  true  "Certificate ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Router       /api/v1/orgs/{org_id}/certificates/{certificate_id} [delete]
// DeleteCertificateHandler removes a certificate
// DELETE /api/v1/orgs/:org_id/certificates/:certificate_id
func (h *CertificateHandlers) DeleteCertificateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
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

		ctx := c.Request.Context()
		if err := h.certRepo.Delete(ctx, orgID, cert.ID); err != nil {
			apiutil.Fail(c, err, "Certificate", "Failed to delete certificate")
			return
		}
		if cert.AttachmentURL != nil && h.store != nil {
			if err := h.store.Delete(ctx, *cert.AttachmentURL); err != nil {
				slog.Warn("failed to delete certificate attachment",
					"certificate_id", cert.ID, "key", *cert.AttachmentURL, "error", err)
			}
		}

		h.activity.Record(orgID, actor.UserID, "Removed a certificate")
		c.JSON(http.StatusOK, gin.H{"message": "Certificate removed."})
	}
}
