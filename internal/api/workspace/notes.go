package workspace

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/validation"
)

// NoteRequest is the body of POST /orgs/:org_id/notes
type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// @Summary      List notes
// @Tags         Notes
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "notes: []models.Note"
// @Router       /api/v1/orgs/{org_id}/notes [get]
// ListNotesHandler lists the organization's notes, newest first
// GET /api/v1/orgs/:org_id/notes
func (h *WorkspaceHandlers) ListNotesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		notes, err := h.noteRepo.ListByOrg(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Note", "Failed to list notes")
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": notes})
	}
}

// @Summary      Create note
// @Tags         Notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int          true  "Organization ID"
// @Param        body    body  NoteRequest  true  "Note"
// @Success      201  {object}  models.Note
// @Router       /api/v1/orgs/{org_id}/notes [post]
// CreateNoteHandler posts a note
// POST /api/v1/orgs/:org_id/notes
func (h *WorkspaceHandlers) CreateNoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req NoteRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			apiutil.BadRequest(c, "Note content is required.")
			return
		}
		if err := validation.MaxLength("Note", content, validation.MaxNotesLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		note := &models.Note{OrgID: orgID, AuthorID: actor.UserID, Content: content}
		if err := h.noteRepo.Create(c.Request.Context(), note); err != nil {
			apiutil.Fail(c, err, "Note", "Failed to create note")
			return
		}
		c.JSON(http.StatusCreated, note)
	}
}

// @Summary      Delete note
// @Description  Only the author may delete a note.
// @Tags         Notes
// @Security     Bearer
// @Param        org_id   path  int  true  "Organization ID"
// @Param        note_id  path  int  true  "Note ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}  "Not the author"
// @Router       /api/v1/orgs/{org_id}/notes/{note_id} [delete]
// DeleteNoteHandler deletes one of the caller's notes
// DELETE /api/v1/orgs/:org_id/notes/:note_id
func (h *WorkspaceHandlers) DeleteNoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		noteID, ok := apiutil.IDParam(c, "note_id", "Note")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		note, err := h.noteRepo.GetByID(ctx, orgID, noteID)
		if err != nil {
			apiutil.Fail(c, err, "Note", "Failed to load note")
			return
		}
		if note == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		if note.AuthorID != actor.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		if err := h.noteRepo.Delete(ctx, orgID, noteID); err != nil {
			apiutil.Fail(c, err, "Note", "Failed to delete note")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Note deleted."})
	}
}
