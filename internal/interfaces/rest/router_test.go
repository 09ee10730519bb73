package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fluxcrm/backend/internal/application/services"
	"github.com/fluxcrm/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schemaRepo := persistence.NewSchemaRepository(db)
	recordRepo := persistence.NewRecordRepository(db)
	relRepo := persistence.NewRelationshipRepository(db)
	txManager := persistence.NewTransactionManager(db)

	validation := services.NewValidationService()
	relationships := services.NewRelationshipService(schemaRepo, relRepo, recordRepo, txManager, nil)
	svc := &services.ServiceManager{
		Schema:        services.NewSchemaService(schemaRepo, recordRepo, relRepo, txManager, nil),
		Records:       services.NewRecordService(schemaRepo, recordRepo, relationships, validation, txManager, nil),
		Relationships: relationships,
		Validation:    validation,
	}

	router := gin.New()
	RegisterRoutes(router, svc)
	return router, mock
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFieldTypesEndpoint(t *testing.T) {
	router, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/field-types", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		FieldTypes map[string]json.RawMessage `json:"field_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.FieldTypes)
	assert.Contains(t, body.FieldTypes, "text")
	assert.Contains(t, body.FieldTypes, "formula")
}

func TestGetModuleNotFound(t *testing.T) {
	router, mock := setupTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM `modules` WHERE `id` = ? AND `deleted_at` IS NULL LIMIT 1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/modules/ghost", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateModuleRejectsEmptyName(t *testing.T) {
	router, mock := setupTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/modules", strings.NewReader(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkDeleteRequiresIDs(t *testing.T) {
	router, mock := setupTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/modules/mod-1/records/bulk-delete", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
