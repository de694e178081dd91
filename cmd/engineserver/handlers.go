package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lyzr/orchestrator/pkg/engine"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
	"github.com/lyzr/orchestrator/pkg/patchguard"
	"github.com/lyzr/orchestrator/pkg/ratelimit"
	"github.com/lyzr/orchestrator/pkg/rundispatch"
	"github.com/lyzr/orchestrator/pkg/store"
)

// handlers bundles the server's collaborators, adapted from
// cmd/orchestrator/handlers' echo.Context handler style.
type handlers struct {
	eng        *engine.Engine
	blueprints store.BlueprintStore
	results    store.ResultStore
	runQueue   *rundispatch.Queue
	limiter    *ratelimit.Limiter // nil when no Redis backend is configured
	log        *logger.Logger
}

// runRequestBody is the body of POST /workflows/:id/run.
type runRequestBody struct {
	InitialContext map[string]any `json:"initial_context"`
}

// SubmitWorkflow stores a new blueprint after validating its structure.
func (h *handlers) SubmitWorkflow(c echo.Context) error {
	var wf enginetypes.WorkflowSpec
	if err := c.Bind(&wf); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid workflow body: %v", err))
	}
	if wf.BlueprintID == "" {
		wf.BlueprintID = uuid.NewString()
	}

	if err := h.eng.Validate(&wf); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.blueprints.Save(c.Request().Context(), &wf); err != nil {
		h.log.Error("saving blueprint failed", "blueprint_id", wf.BlueprintID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save workflow")
	}

	return c.JSON(http.StatusCreated, wf)
}

// GetWorkflow fetches a stored blueprint by id.
func (h *handlers) GetWorkflow(c echo.Context) error {
	id := c.Param("id")
	wf, ok, err := h.blueprints.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch workflow")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	return c.JSON(http.StatusOK, wf)
}

// PatchWorkflow applies a JSON Patch (RFC 6902) to a stored blueprint,
// re-validates the result, and saves it back under the same id. Grounded on
// cmd/orchestrator's materializer applyPatch/PatchRun pattern.
func (h *handlers) PatchWorkflow(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	wf, ok, err := h.blueprints.GetByID(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch workflow")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}

	patchJSON, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read patch body")
	}
	var rawOps []map[string]any
	if err := json.Unmarshal(patchJSON, &rawOps); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON patch: %v", err))
	}
	if err := patchguard.Validate(rawOps); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("patch rejected: %v", err))
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON patch: %v", err))
	}

	currentJSON, err := json.Marshal(wf)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to marshal current workflow")
	}

	patchedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to apply patch: %v", err))
	}

	var patched enginetypes.WorkflowSpec
	if err := json.Unmarshal(patchedJSON, &patched); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to parse patched workflow")
	}
	patched.BlueprintID = id

	if err := h.eng.Validate(&patched); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("patched workflow is invalid: %v", err))
	}

	if err := h.blueprints.Save(ctx, &patched); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save patched workflow")
	}

	return c.JSON(http.StatusOK, patched)
}

// RunWorkflow runs a stored blueprint. With ?async=true it enqueues the run
// and returns an execution id immediately instead of blocking for completion.
func (h *handlers) RunWorkflow(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	wf, ok, err := h.blueprints.GetByID(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch workflow")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}

	var body runRequestBody
	_ = c.Bind(&body) // an empty body is a valid run request

	if h.limiter != nil {
		username, _ := c.Get("username").(string)
		if username != "" {
			tier := ratelimit.InspectWorkflow(wf)
			result, err := h.limiter.CheckTier(ctx, username, tier)
			if err == nil && !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":               "rate_limit_exceeded",
					"tier":                tier,
					"retry_after_seconds": result.RetryAfterSeconds,
				})
			}
		}
	}

	if c.QueryParam("async") == "true" {
		executionID := uuid.NewString()
		req := rundispatch.RunRequest{ExecutionID: executionID, Workflow: wf, InitialContext: body.InitialContext}
		if !h.runQueue.Submit(ctx, req) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "run queue is full")
		}
		return c.JSON(http.StatusAccepted, map[string]string{"execution_id": executionID})
	}

	result, err := h.eng.Run(ctx, wf, body.InitialContext)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// GetRun fetches a previously completed run's result by execution id.
func (h *handlers) GetRun(c echo.Context) error {
	id := c.Param("id")
	result, ok, err := h.results.GetResult(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch run result")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, result)
}

func readBody(c echo.Context) ([]byte, error) {
	defer c.Request().Body.Close()
	return io.ReadAll(c.Request().Body)
}
