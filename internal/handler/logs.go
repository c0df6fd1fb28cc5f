package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nuitap/nuitap/internal/infer"
	"github.com/nuitap/nuitap/internal/logstore"
	"github.com/nuitap/nuitap/internal/model"
	"github.com/nuitap/nuitap/internal/response"
)

// LogHandler handles /log, /logs, /clear and /health. It owns no state
// beyond its dependencies; all persistence goes through the store.
type LogHandler struct {
	Store *logstore.Store
	Log   zerolog.Logger
}

// Ingest accepts one log record (POST /log). The body must carry a
// resource name; the server name is optional and defaults to the store's
// fallback. An inferable callback/url address overrides the declared
// resource name. Never gated: external clients log without authenticating.
func (h *LogHandler) Ingest(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return response.BadRequest(c, "invalid JSON body")
	}

	rec := model.Record(body)
	resource := rec.String("resource")
	if resource == "" {
		return response.BadRequest(c, "resource is required")
	}
	server := rec.String("server")

	if name, ok := infer.Resource(rec); ok {
		resource = name
	} else if rec.Type() == model.TypeNUIToLua || rec.Type() == model.TypeFetchCall {
		h.Log.Warn().
			Str("resource", resource).
			Str("type", rec.Type()).
			Msg("could not infer resource from record address")
	}

	if err := h.Store.Append(server, resource, rec); err != nil {
		h.Log.Error().Err(err).Str("resource", resource).Msg("append failed")
		return response.InternalError(c, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

// queryRequest is the tagged form of GET /logs, resolved once at the
// boundary by which query parameters are present.
type queryRequest struct {
	kind     queryKind
	server   string
	resource string
	limit    int
}

type queryKind int

const (
	queryListServers queryKind = iota
	queryListResources
	queryTail
)

func parseQuery(c echo.Context) queryRequest {
	req := queryRequest{
		server:   c.QueryParam("server"),
		resource: c.QueryParam("resource"),
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.limit = n
		}
	}
	switch {
	case req.server == "":
		req.kind = queryListServers
	case req.resource == "":
		req.kind = queryListResources
	default:
		req.kind = queryTail
	}
	return req
}

// Query serves GET /logs. All three shapes return bare JSON arrays so the
// viewer treats them uniformly: no params lists servers, server alone
// lists its resources, server+resource tails the most recent records
// oldest-first.
func (h *LogHandler) Query(c echo.Context) error {
	req := parseQuery(c)
	switch req.kind {
	case queryListServers:
		servers, err := h.Store.ListServers()
		if err != nil {
			h.Log.Error().Err(err).Msg("list servers failed")
			return response.InternalError(c, err.Error())
		}
		return response.OK(c, servers)
	case queryListResources:
		resources, err := h.Store.ListResources(req.server)
		if err != nil {
			h.Log.Error().Err(err).Str("server", req.server).Msg("list resources failed")
			return response.InternalError(c, err.Error())
		}
		return response.OK(c, resources)
	default:
		records, err := h.Store.Tail(req.server, req.resource, req.limit)
		if err != nil {
			h.Log.Error().Err(err).
				Str("server", req.server).
				Str("resource", req.resource).
				Msg("tail failed")
			return response.InternalError(c, err.Error())
		}
		return response.OK(c, records)
	}
}

type clearRequest struct {
	Server   string `json:"server"`
	Resource string `json:"resource"`
}

// Clear truncates one resource log (POST /clear). The resource must be
// named explicitly; clearing is never a silent no-op.
func (h *LogHandler) Clear(c echo.Context) error {
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body")
	}
	if req.Resource == "" {
		return response.BadRequest(c, "resource is required")
	}

	err := h.Store.Clear(req.Server, req.Resource)
	if errors.Is(err, logstore.ErrNotFound) {
		return response.NotFound(c, "no log found for "+req.Resource)
	}
	if err != nil {
		h.Log.Error().Err(err).Str("resource", req.Resource).Msg("clear failed")
		return response.InternalError(c, err.Error())
	}
	h.Log.Info().Str("server", req.Server).Str("resource", req.Resource).Msg("log cleared")
	return response.Message(c, http.StatusOK, "log cleared for "+req.Resource)
}

// Health reports liveness (GET /health). Never gated.
func (h *LogHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "running",
		"logDirectory": h.Store.Root(),
		"timestamp":    time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
