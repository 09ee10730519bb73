package rest

import (
	"github.com/fluxcrm/backend/internal/application/services"
	"github.com/fluxcrm/backend/internal/domain/models"
	"github.com/gin-gonic/gin"
)

// SchemaHandler exposes the administrative schema surface: modules, blocks,
// fields, and field options
type SchemaHandler struct {
	svc *services.ServiceManager
}

func NewSchemaHandler(svc *services.ServiceManager) *SchemaHandler {
	return &SchemaHandler{svc: svc}
}

// reorderRequest carries new display positions keyed by child id
type reorderRequest struct {
	Positions map[string]int `json:"positions" binding:"required"`
}

// CreateModule handles POST /api/modules
func (h *SchemaHandler) CreateModule(c *gin.Context) {
	var input models.ModuleInput
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "module", func() (interface{}, error) {
		return h.svc.Schema.CreateModule(c.Request.Context(), &input)
	})
}

// ListModules handles GET /api/modules
func (h *SchemaHandler) ListModules(c *gin.Context) {
	HandleGetEnvelope(c, "modules", func() (interface{}, error) {
		return h.svc.Schema.ListModules(c.Request.Context())
	})
}

// GetModule handles GET /api/modules/:moduleId
func (h *SchemaHandler) GetModule(c *gin.Context) {
	HandleGetEnvelope(c, "module", func() (interface{}, error) {
		return h.svc.Schema.GetModule(c.Request.Context(), c.Param("moduleId"))
	})
}

// GetModuleByAPIName handles GET /api/modules/by-name/:apiName
func (h *SchemaHandler) GetModuleByAPIName(c *gin.Context) {
	HandleGetEnvelope(c, "module", func() (interface{}, error) {
		return h.svc.Schema.GetModuleByAPIName(c.Request.Context(), c.Param("apiName"))
	})
}

// UpdateModule handles PUT /api/modules/:moduleId
func (h *SchemaHandler) UpdateModule(c *gin.Context) {
	var update models.ModuleUpdate
	if !BindJSON(c, &update) {
		return
	}
	HandleGetEnvelope(c, "module", func() (interface{}, error) {
		return h.svc.Schema.UpdateModule(c.Request.Context(), c.Param("moduleId"), &update)
	})
}

// DeleteModule handles DELETE /api/modules/:moduleId
func (h *SchemaHandler) DeleteModule(c *gin.Context) {
	HandleDeleteEnvelope(c, "module deleted", func() error {
		return h.svc.Schema.DeleteModule(c.Request.Context(), c.Param("moduleId"))
	})
}

// CreateBlock handles POST /api/modules/:moduleId/blocks
func (h *SchemaHandler) CreateBlock(c *gin.Context) {
	var input models.BlockInput
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "block", func() (interface{}, error) {
		return h.svc.Schema.CreateBlock(c.Request.Context(), c.Param("moduleId"), &input)
	})
}

// GetBlock handles GET /api/blocks/:blockId
func (h *SchemaHandler) GetBlock(c *gin.Context) {
	HandleGetEnvelope(c, "block", func() (interface{}, error) {
		return h.svc.Schema.GetBlock(c.Request.Context(), c.Param("blockId"))
	})
}

// UpdateBlock handles PUT /api/blocks/:blockId
func (h *SchemaHandler) UpdateBlock(c *gin.Context) {
	var update models.BlockUpdate
	if !BindJSON(c, &update) {
		return
	}
	HandleGetEnvelope(c, "block", func() (interface{}, error) {
		return h.svc.Schema.UpdateBlock(c.Request.Context(), c.Param("blockId"), &update)
	})
}

// DeleteBlock handles DELETE /api/blocks/:blockId
func (h *SchemaHandler) DeleteBlock(c *gin.Context) {
	HandleDeleteEnvelope(c, "block deleted", func() error {
		return h.svc.Schema.DeleteBlock(c.Request.Context(), c.Param("blockId"))
	})
}

// ReorderBlocks handles PUT /api/modules/:moduleId/blocks/reorder
func (h *SchemaHandler) ReorderBlocks(c *gin.Context) {
	var req reorderRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "blocks reordered", func() error {
		return h.svc.Schema.ReorderBlocks(c.Request.Context(), c.Param("moduleId"), req.Positions)
	})
}

// CreateField handles POST /api/blocks/:blockId/fields
func (h *SchemaHandler) CreateField(c *gin.Context) {
	var input models.FieldInput
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "field", func() (interface{}, error) {
		return h.svc.Schema.CreateField(c.Request.Context(), c.Param("blockId"), &input)
	})
}

// GetField handles GET /api/fields/:fieldId
func (h *SchemaHandler) GetField(c *gin.Context) {
	HandleGetEnvelope(c, "field", func() (interface{}, error) {
		return h.svc.Schema.GetField(c.Request.Context(), c.Param("fieldId"))
	})
}

// UpdateField handles PUT /api/fields/:fieldId
func (h *SchemaHandler) UpdateField(c *gin.Context) {
	var update models.FieldUpdate
	if !BindJSON(c, &update) {
		return
	}
	HandleGetEnvelope(c, "field", func() (interface{}, error) {
		return h.svc.Schema.UpdateField(c.Request.Context(), c.Param("fieldId"), &update)
	})
}

// DeleteField handles DELETE /api/fields/:fieldId
func (h *SchemaHandler) DeleteField(c *gin.Context) {
	HandleDeleteEnvelope(c, "field deleted", func() error {
		return h.svc.Schema.DeleteField(c.Request.Context(), c.Param("fieldId"))
	})
}

// ReorderFields handles PUT /api/blocks/:blockId/fields/reorder
func (h *SchemaHandler) ReorderFields(c *gin.Context) {
	var req reorderRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "fields reordered", func() error {
		return h.svc.Schema.ReorderFields(c.Request.Context(), c.Param("blockId"), req.Positions)
	})
}

// CreateFieldOption handles POST /api/fields/:fieldId/options
func (h *SchemaHandler) CreateFieldOption(c *gin.Context) {
	var input models.FieldOptionInput
	if !BindJSON(c, &input) {
		return
	}
	HandleCreateEnvelope(c, "option", func() (interface{}, error) {
		return h.svc.Schema.CreateFieldOption(c.Request.Context(), c.Param("fieldId"), &input)
	})
}

// UpdateFieldOption handles PUT /api/options/:optionId
func (h *SchemaHandler) UpdateFieldOption(c *gin.Context) {
	var update models.FieldOptionUpdate
	if !BindJSON(c, &update) {
		return
	}
	HandleGetEnvelope(c, "option", func() (interface{}, error) {
		return h.svc.Schema.UpdateFieldOption(c.Request.Context(), c.Param("optionId"), &update)
	})
}

// DeleteFieldOption handles DELETE /api/options/:optionId
func (h *SchemaHandler) DeleteFieldOption(c *gin.Context) {
	HandleDeleteEnvelope(c, "option deleted", func() error {
		return h.svc.Schema.DeleteFieldOption(c.Request.Context(), c.Param("optionId"))
	})
}

// ReorderFieldOptions handles PUT /api/fields/:fieldId/options/reorder
func (h *SchemaHandler) ReorderFieldOptions(c *gin.Context) {
	var req reorderRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleDeleteEnvelope(c, "options reordered", func() error {
		return h.svc.Schema.ReorderFieldOptions(c.Request.Context(), c.Param("fieldId"), req.Positions)
	})
}
