package rest

import (
	"github.com/fluxcrm/backend/internal/application/services"
	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/gin-gonic/gin"
)

// RecordHandler exposes the data surface of modules: validated CRUD, listing
// with filters and sorts, and the bulk operations
type RecordHandler struct {
	svc *services.ServiceManager
}

func NewRecordHandler(svc *services.ServiceManager) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// Create handles POST /api/modules/:moduleId/records
func (h *RecordHandler) Create(c *gin.Context) {
	var input models.Document
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "record", func() (interface{}, error) {
		return h.svc.Records.Create(c.Request.Context(), c.Param("moduleId"), input, actorID(c))
	})
}

// List handles POST /api/modules/:moduleId/records/list. The request is a
// POST so filter values of any JSON type survive the trip.
func (h *RecordHandler) List(c *gin.Context) {
	var opts models.ListOptions
	if !BindJSON(c, &opts) {
		return
	}
	HandleGetEnvelope(c, "page", func() (interface{}, error) {
		return h.svc.Records.List(c.Request.Context(), c.Param("moduleId"), opts)
	})
}

// Get handles GET /api/modules/:moduleId/records/:recordId
func (h *RecordHandler) Get(c *gin.Context) {
	HandleGetEnvelope(c, "record", func() (interface{}, error) {
		return h.svc.Records.Get(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"))
	})
}

// Update handles PUT /api/modules/:moduleId/records/:recordId
func (h *RecordHandler) Update(c *gin.Context) {
	var input models.Document
	if !BindJSON(c, &input) {
		return
	}
	HandleGetEnvelope(c, "record", func() (interface{}, error) {
		return h.svc.Records.Update(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"), input, actorID(c))
	})
}

// Delete handles DELETE /api/modules/:moduleId/records/:recordId
func (h *RecordHandler) Delete(c *gin.Context) {
	HandleDeleteEnvelope(c, "record deleted", func() error {
		return h.svc.Records.SoftDelete(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"), actorID(c))
	})
}

// Restore handles POST /api/modules/:moduleId/records/:recordId/restore
func (h *RecordHandler) Restore(c *gin.Context) {
	HandleGetEnvelope(c, "record", func() (interface{}, error) {
		return h.svc.Records.Restore(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"), actorID(c))
	})
}

// ForceDelete handles DELETE /api/modules/:moduleId/records/:recordId/force
func (h *RecordHandler) ForceDelete(c *gin.Context) {
	HandleDeleteEnvelope(c, "record permanently deleted", func() error {
		return h.svc.Records.ForceDelete(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"), actorID(c))
	})
}

// GetRelated handles GET /api/modules/:moduleId/records/:recordId/related
func (h *RecordHandler) GetRelated(c *gin.Context) {
	HandleGetEnvelope(c, "related", func() (interface{}, error) {
		return h.svc.Relationships.GetRelatedRecords(c.Request.Context(), c.Param("moduleId"), c.Param("recordId"))
	})
}

// BulkCreate handles POST /api/modules/:moduleId/records/bulk
func (h *RecordHandler) BulkCreate(c *gin.Context) {
	var req struct {
		Items []models.Document `json:"items" binding:"required"`
	}
	if !BindJSON(c, &req) {
		return
	}
	HandleCreateEnvelope(c, "records", func() (interface{}, error) {
		return h.svc.Records.BulkCreate(c.Request.Context(), c.Param("moduleId"), req.Items, actorID(c))
	})
}

// BulkUpdate handles PUT /api/modules/:moduleId/records/bulk
func (h *RecordHandler) BulkUpdate(c *gin.Context) {
	var req struct {
		Items []services.BulkUpdateItem `json:"items" binding:"required"`
	}
	if !BindJSON(c, &req) {
		return
	}
	HandleGetEnvelope(c, "records", func() (interface{}, error) {
		return h.svc.Records.BulkUpdate(c.Request.Context(), c.Param("moduleId"), req.Items, actorID(c))
	})
}

// BulkDelete handles POST /api/modules/:moduleId/records/bulk-delete
func (h *RecordHandler) BulkDelete(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "records deleted", func() error {
		return h.svc.Records.BulkDelete(c.Request.Context(), c.Param("moduleId"), req.IDs, actorID(c))
	})
}
