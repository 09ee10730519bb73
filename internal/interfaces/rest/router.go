package rest

import (
	"net/http"

	"github.com/fluxcrm/backend/internal/application/services"
	"github.com/fluxcrm/backend/pkg/fieldtypes"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the full API surface on a gin engine
func RegisterRoutes(router *gin.Engine, svc *services.ServiceManager) {
	schemaHandler := NewSchemaHandler(svc)
	recordHandler := NewRecordHandler(svc)
	relationshipHandler := NewRelationshipHandler(svc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/field-types", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"field_types": fieldtypes.GetRegistry().GetAll()})
		})

		modules := api.Group("/modules")
		{
			modules.POST("", schemaHandler.CreateModule)
			modules.GET("", schemaHandler.ListModules)
			modules.GET("/by-name/:apiName", schemaHandler.GetModuleByAPIName)
			modules.GET("/:moduleId", schemaHandler.GetModule)
			modules.PUT("/:moduleId", schemaHandler.UpdateModule)
			modules.DELETE("/:moduleId", schemaHandler.DeleteModule)

			modules.POST("/:moduleId/blocks", schemaHandler.CreateBlock)
			modules.PUT("/:moduleId/blocks/reorder", schemaHandler.ReorderBlocks)

			modules.POST("/:moduleId/records", recordHandler.Create)
			modules.POST("/:moduleId/records/list", recordHandler.List)
			modules.POST("/:moduleId/records/bulk", recordHandler.BulkCreate)
			modules.PUT("/:moduleId/records/bulk", recordHandler.BulkUpdate)
			modules.POST("/:moduleId/records/bulk-delete", recordHandler.BulkDelete)
			modules.GET("/:moduleId/records/:recordId", recordHandler.Get)
			modules.PUT("/:moduleId/records/:recordId", recordHandler.Update)
			modules.DELETE("/:moduleId/records/:recordId", recordHandler.Delete)
			modules.POST("/:moduleId/records/:recordId/restore", recordHandler.Restore)
			modules.DELETE("/:moduleId/records/:recordId/force", recordHandler.ForceDelete)
			modules.GET("/:moduleId/records/:recordId/related", recordHandler.GetRelated)
		}

		blocks := api.Group("/blocks")
		{
			blocks.GET("/:blockId", schemaHandler.GetBlock)
			blocks.PUT("/:blockId", schemaHandler.UpdateBlock)
			blocks.DELETE("/:blockId", schemaHandler.DeleteBlock)
			blocks.POST("/:blockId/fields", schemaHandler.CreateField)
			blocks.PUT("/:blockId/fields/reorder", schemaHandler.ReorderFields)
		}

		fields := api.Group("/fields")
		{
			fields.GET("/:fieldId", schemaHandler.GetField)
			fields.PUT("/:fieldId", schemaHandler.UpdateField)
			fields.DELETE("/:fieldId", schemaHandler.DeleteField)
			fields.POST("/:fieldId/options", schemaHandler.CreateFieldOption)
			fields.PUT("/:fieldId/options/reorder", schemaHandler.ReorderFieldOptions)
		}

		options := api.Group("/options")
		{
			options.PUT("/:optionId", schemaHandler.UpdateFieldOption)
			options.DELETE("/:optionId", schemaHandler.DeleteFieldOption)
		}

		relationships := api.Group("/relationships")
		{
			relationships.POST("", relationshipHandler.Create)
			relationships.GET("", relationshipHandler.List)
			relationships.GET("/:relationshipId", relationshipHandler.Get)
			relationships.PUT("/:relationshipId", relationshipHandler.Update)
			relationships.DELETE("/:relationshipId", relationshipHandler.Delete)
			relationships.POST("/:relationshipId/link", relationshipHandler.Link)
			relationships.POST("/:relationshipId/unlink", relationshipHandler.Unlink)
		}
	}
}
