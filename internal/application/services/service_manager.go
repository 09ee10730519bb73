package services

import (
	"github.com/fluxcrm/backend/internal/infrastructure/database"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
)

// ServiceManager wires the repositories and services over one database
// connection and hands the bundle to the interface layer
type ServiceManager struct {
	Schema        *SchemaService
	Records       *RecordService
	Relationships *RelationshipService
	Validation    *ValidationService
}

// NewServiceManager creates the full service graph
func NewServiceManager(db *database.MySQLConnection) *ServiceManager {
	schemaRepo := persistence.NewSchemaRepository(db.DB())
	recordRepo := persistence.NewRecordRepository(db.DB())
	relRepo := persistence.NewRelationshipRepository(db.DB())
	txManager := persistence.NewTransactionManager(db.DB())

	validation := NewValidationService()
	relationships := NewRelationshipService(schemaRepo, relRepo, recordRepo, txManager, nil)

	return &ServiceManager{
		Schema:        NewSchemaService(schemaRepo, recordRepo, relRepo, txManager, nil),
		Records:       NewRecordService(schemaRepo, recordRepo, relationships, validation, txManager, nil),
		Relationships: relationships,
		Validation:    validation,
	}
}
