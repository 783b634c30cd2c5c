package net

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/ws"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/observability"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/server"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
)

// maxNameLength caps display names at the edge; the simulation stores them
// verbatim.
const maxNameLength = 32

// HTTPHandlerConfig carries the optional collaborators for the HTTP edge.
type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Publisher     logging.Publisher
	Telemetry     func() map[string]uint64
	Observability observability.Config
}

// NewHTTPHandler wires the public surface over the room manager: join,
// websocket, health, and diagnostics, plus an optional static client.
func NewHTTPHandler(manager *server.Manager, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	mux := nethttp.NewServeMux()
	observability.AttachPprof(mux, cfg.Observability)

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string                   `json:"status"`
			ServerTime int64                    `json:"serverTime"`
			Rooms      []server.RoomDiagnostics `json:"rooms"`
			Telemetry  map[string]uint64        `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Rooms:      manager.Diagnostics(),
		}
		if cfg.Telemetry != nil {
			payload.Telemetry = cfg.Telemetry()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		type joinRequest struct {
			Name string `json:"name"`
			Room string `json:"room"`
		}

		var req joinRequest
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		if req.Room == "" {
			req.Room = r.URL.Query().Get("room")
		}
		req.Name = strings.TrimSpace(req.Name)
		if len(req.Name) > maxNameLength {
			req.Name = req.Name[:maxNameLength]
		}

		room, err := manager.GetOrCreate(req.Room)
		if err != nil {
			httpError(w, err.Error(), joinErrorStatus(err))
			return
		}

		playerID := uuid.NewString()
		result, err := room.Join(playerID, req.Name)
		if err != nil {
			logger.Printf("join failed for room %s: %v", room.ID(), err)
			httpError(w, err.Error(), joinErrorStatus(err))
			return
		}
		if !result.OK {
			httpError(w, result.Reason, nethttp.StatusConflict)
			return
		}

		response := proto.JoinResponse{
			Ver:   proto.Version,
			Type:  proto.TypeJoined,
			ID:    playerID,
			Name:  req.Name,
			Team:  result.Team,
			Room:  room.ID(),
			State: result.Snapshot,
		}
		data, err := json.Marshal(response)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(manager, ws.HandlerConfig{
		Logger:    logger,
		Publisher: cfg.Publisher,
	})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

// joinErrorStatus maps registry and room errors onto HTTP statuses. Client
// mistakes are 4xx; capacity and shutdown are 503 so clients back off and
// retry.
func joinErrorStatus(err error) int {
	switch {
	case errors.Is(err, server.ErrInvalidRoomCode):
		return nethttp.StatusBadRequest
	case errors.Is(err, server.ErrTooManyRooms),
		errors.Is(err, server.ErrManagerClosed),
		errors.Is(err, server.ErrRoomClosed),
		errors.Is(err, server.ErrJoinTimeout):
		return nethttp.StatusServiceUnavailable
	default:
		return nethttp.StatusInternalServerError
	}
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
