package rest

import (
	"github.com/fluxcrm/backend/internal/application/services"
	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/gin-gonic/gin"
)

// RelationshipHandler exposes relationship declarations and the explicit
// link/unlink operations
type RelationshipHandler struct {
	svc *services.ServiceManager
}

func NewRelationshipHandler(svc *services.ServiceManager) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// linkRequest names a source record and the targets to connect or disconnect
type linkRequest struct {
	SourceID  string   `json:"source_id" binding:"required"`
	TargetIDs []string `json:"target_ids"`
}

// Create handles POST /api/relationships
func (h *RelationshipHandler) Create(c *gin.Context) {
	var input models.RelationshipInput
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "relationship", func() (interface{}, error) {
		return h.svc.Relationships.CreateRelationship(c.Request.Context(), &input)
	})
}

// List handles GET /api/relationships, optionally filtered by ?module_id=
func (h *RelationshipHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "relationships", func() (interface{}, error) {
		return h.svc.Relationships.ListRelationships(c.Request.Context(), c.Query("module_id"))
	})
}

// Get handles GET /api/relationships/:relationshipId
func (h *RelationshipHandler) Get(c *gin.Context) {
	HandleGetEnvelope(c, "relationship", func() (interface{}, error) {
		return h.svc.Relationships.GetRelationship(c.Request.Context(), c.Param("relationshipId"))
	})
}

// Update handles PUT /api/relationships/:relationshipId
func (h *RelationshipHandler) Update(c *gin.Context) {
	var update models.RelationshipUpdate
	if !BindJSON(c, &update) {
		return
	}
	HandleGetEnvelope(c, "relationship", func() (interface{}, error) {
		return h.svc.Relationships.UpdateRelationship(c.Request.Context(), c.Param("relationshipId"), &update)
	})
}

// Delete handles DELETE /api/relationships/:relationshipId
func (h *RelationshipHandler) Delete(c *gin.Context) {
	HandleDeleteEnvelope(c, "relationship deleted", func() error {
		return h.svc.Relationships.DeleteRelationship(c.Request.Context(), c.Param("relationshipId"))
	})
}

// Link handles POST /api/relationships/:relationshipId/link
func (h *RelationshipHandler) Link(c *gin.Context) {
	var req linkRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "records linked", func() error {
		return h.svc.Relationships.LinkRecords(c.Request.Context(), c.Param("relationshipId"), req.SourceID, req.TargetIDs, actorID(c))
	})
}

// Unlink handles POST /api/relationships/:relationshipId/unlink
func (h *RelationshipHandler) Unlink(c *gin.Context) {
	var req linkRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "records unlinked", func() error {
		return h.svc.Relationships.UnlinkRecords(c.Request.Context(), c.Param("relationshipId"), req.SourceID, req.TargetIDs, actorID(c))
	})
}
