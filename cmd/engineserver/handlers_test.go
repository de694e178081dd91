package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/cache"
	"github.com/lyzr/orchestrator/pkg/config"
	"github.com/lyzr/orchestrator/pkg/contextstore"
	"github.com/lyzr/orchestrator/pkg/engine"
	"github.com/lyzr/orchestrator/pkg/executors"
	"github.com/lyzr/orchestrator/pkg/logger"
	"github.com/lyzr/orchestrator/pkg/rundispatch"
	"github.com/lyzr/orchestrator/pkg/store"
	"github.com/lyzr/orchestrator/pkg/tools"
)

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()

	log := logger.New("error", "text")
	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(tools.NewHTTPFetch(0))

	blueprintStore := store.NewInMemory()
	deps := engine.Dependencies{
		ContextStore: contextstore.New(),
		Cache:        cache.NewMemoryCache(0, log),
		ToolRegistry: toolRegistry,
		Logger:       log,
		Registry:     blueprintStore,
	}
	opts := config.EngineConfig{MaxParallel: 2, FailurePolicy: "continue_possible", ValidateOutputs: false}
	eng := engine.New(opts, deps, executors.BuildRegistry())

	return &handlers{
		eng:        eng,
		blueprints: blueprintStore,
		results:    blueprintStore,
		runQueue:   rundispatch.New(4, log),
		log:        log,
	}
}

const sampleWorkflow = `{
	"blueprint_id": "wf-1",
	"version": "1",
	"nodes": [
		{"id": "n1", "kind": "tool", "version": "1", "tool": {"tool_name": "http_fetch", "tool_args": {"url": "https://example.com"}}}
	]
}`

func TestSubmitAndGetWorkflow(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(sampleWorkflow))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.SubmitWorkflow(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/workflows/wf-1", nil)
	getRec := httptest.NewRecorder()
	getCtx := e.NewContext(getReq, getRec)
	getCtx.SetParamNames("id")
	getCtx.SetParamValues("wf-1")

	require.NoError(t, h.GetWorkflow(getCtx))
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Contains(t, getRec.Body.String(), "wf-1")
}

func TestGetWorkflowNotFound(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/workflows/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetWorkflow(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestSubmitWorkflowRejectsInvalidStructure(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	invalid := `{"blueprint_id": "bad", "version": "1", "nodes": [{"id": "n1", "kind": "bogus", "version": "1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(invalid))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SubmitWorkflow(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Code)
}

func TestRunWorkflowSynchronously(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	submitReq := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(sampleWorkflow))
	submitReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	submitRec := httptest.NewRecorder()
	require.NoError(t, h.SubmitWorkflow(e.NewContext(submitReq, submitRec)))

	runReq := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/run", strings.NewReader(`{}`))
	runReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	runRec := httptest.NewRecorder()
	runCtx := e.NewContext(runReq, runRec)
	runCtx.SetParamNames("id")
	runCtx.SetParamValues("wf-1")

	require.NoError(t, h.RunWorkflow(runCtx))
	assert.Equal(t, http.StatusOK, runRec.Code)
	assert.Contains(t, runRec.Body.String(), "\"success\"")
}

func TestRunWorkflowAsyncReturnsExecutionID(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	submitReq := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(sampleWorkflow))
	submitReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	submitRec := httptest.NewRecorder()
	require.NoError(t, h.SubmitWorkflow(e.NewContext(submitReq, submitRec)))

	runReq := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/run?async=true", strings.NewReader(`{}`))
	runReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	runRec := httptest.NewRecorder()
	runCtx := e.NewContext(runReq, runRec)
	runCtx.SetParamNames("id")
	runCtx.SetParamValues("wf-1")

	require.NoError(t, h.RunWorkflow(runCtx))
	assert.Equal(t, http.StatusAccepted, runRec.Code)
	assert.Contains(t, runRec.Body.String(), "execution_id")
}

func TestPatchWorkflowAppliesJSONPatch(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	submitReq := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(sampleWorkflow))
	submitReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	submitRec := httptest.NewRecorder()
	require.NoError(t, h.SubmitWorkflow(e.NewContext(submitReq, submitRec)))

	patch := `[{"op": "add", "path": "/name", "value": "patched"}]`
	patchReq := httptest.NewRequest(http.MethodPatch, "/workflows/wf-1", strings.NewReader(patch))
	patchRec := httptest.NewRecorder()
	patchCtx := e.NewContext(patchReq, patchRec)
	patchCtx.SetParamNames("id")
	patchCtx.SetParamValues("wf-1")

	require.NoError(t, h.PatchWorkflow(patchCtx))
	assert.Equal(t, http.StatusOK, patchRec.Code)
	assert.Contains(t, patchRec.Body.String(), "patched")

	wf, ok, err := h.blueprints.GetByID(patchCtx.Request().Context(), "wf-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "patched", wf.Name)
}

func TestGetRunNotFound(t *testing.T) {
	h := newTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetRun(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}
