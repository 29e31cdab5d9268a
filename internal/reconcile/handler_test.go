package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authorsync/internal/events"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(t)
	h := NewHandler(svc, events.NewHub())

	router := gin.New()
	h.RegisterRoutes(router.Group("/sync"))
	return router, h
}

func doSync(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sync/author", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerRejectsMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doSync(t, router, `{"sku": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "InvalidRequest")
}

func TestHandlerRejectsMissingSKU(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doSync(t, router, `{"fields":{"name":"Jane Doe"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MissingKey")
}

func TestHandlerRejectsMissingName(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doSync(t, router, `{"sku":"A1","fields":{"author_description":"bio"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MissingRequiredField")
}

func TestHandlerSyncSuccessEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doSync(t, router, `{"recordId":"rec1","sku":"A1","fields":{"name":"Jane Doe","unknown_field":"ignored"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			TermID  int64  `json:"term_id"`
			TermURL string `json:"term_url"`
			Action  string `json:"action"`
			Changed struct {
				Core []string `json:"core"`
				Meta []string `json:"meta"`
			} `json:"changed_fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))

	assert.True(t, env.Success)
	assert.Equal(t, "created", env.Data.Action)
	assert.Positive(t, env.Data.TermID)
	assert.Contains(t, env.Data.TermURL, "/author/jane-doe")
	assert.Contains(t, env.Data.Changed.Core, "name")
	// changed_fields arrays are always present, never null
	assert.NotNil(t, env.Data.Changed.Meta)
}

func TestHandlerAcceptsAirtableRecordIDAlias(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doSync(t, router, `{"airtableRecordId":"recALIAS","sku":"A2","fields":{"name":"John Roe"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recordId":"recALIAS"`)
}
