package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-program-api/internal/service"
)

func TestProgramHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgramHandler(service.NewProgramCatalog())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/programs", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 3)
	assert.Equal(t, "essentials", envelope.Data[0]["id"])
}

func TestProgramHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgramHandler(service.NewProgramCatalog())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/programs/foundations", nil)
	c.Params = gin.Params{{Key: "id", Value: "foundations"}}

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Foundations", envelope.Data["name"])
}

func TestProgramHandlerGetUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgramHandler(service.NewProgramCatalog())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/programs/unknown", nil)
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
