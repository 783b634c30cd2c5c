package ws

import (
	"context"
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/intake"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/server"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/sim"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging/netlog"
)

// HandlerConfig carries the optional collaborators for the websocket edge.
type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

// Handler upgrades connections and runs the per-session read pump. Players
// join over HTTP first; the websocket query carries the room code and the
// player ID handed out there.
type Handler struct {
	manager  *server.Manager
	logger   telemetry.Logger
	pub      logging.Publisher
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint over the room manager.
func NewHandler(manager *server.Manager, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		manager:  manager,
		logger:   logger,
		pub:      cfg.Publisher,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}
	code, err := server.NormalizeRoomCode(r.URL.Query().Get("room"))
	if err != nil || code == "" {
		nethttp.Error(w, "missing or invalid room", nethttp.StatusBadRequest)
		return
	}
	room, ok := h.manager.Get(code)
	if !ok {
		nethttp.Error(w, "unknown room", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	session := NewSession(conn)
	if err := room.Attach(playerID, session); err != nil {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	pub := logging.ForRoom(h.pub, room.ID())
	actor := logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}
	netlog.ClientConnected(r.Context(), pub, room.Tick(), actor,
		netlog.ClientConnectedPayload{RemoteAddr: r.RemoteAddr}, nil)

	// First frame: the latest published snapshot, so a reconnecting client
	// is in sync before the next broadcast lands.
	first := proto.StateFromSnapshot(room.LatestSnapshot(), nil, time.Now().UnixMilli())
	data, err := json.Marshal(first)
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", playerID, err)
		h.drop(r.Context(), room, playerID, session, pub, actor, "marshal-failed")
		return
	}
	if err := session.Send(data); err != nil {
		h.drop(r.Context(), room, playerID, session, pub, actor, "write-failed")
		return
	}

	h.readPump(r.Context(), room, playerID, conn, session, pub, actor)
}

// readPump decodes frames until the socket dies. Losing the socket only
// detaches the session: the player stays in the match and can reconnect
// until the heartbeat prune gives up on them.
func (h *Handler) readPump(ctx context.Context, room *server.Room, playerID string, conn *websocket.Conn, session *Session, pub logging.Publisher, actor logging.EntityRef) {
	cmdCtx := intake.CommandContext{
		Enqueue:   room.Enqueue,
		HasPlayer: room.HasPlayer,
		Tick:      room.Tick,
		Now:       time.Now,
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.drop(ctx, room, playerID, session, pub, actor, "read-closed")
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			netlog.MessageRejected(ctx, pub, room.Tick(), actor,
				netlog.MessageRejectedPayload{Reason: "malformed"}, nil)
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			cmd, ok, _ := intake.StageClientCommand(cmdCtx, playerID, msg)
			if !ok {
				continue
			}
			room.RecordHeartbeat(playerID, cmd.Heartbeat.ReceivedAt, cmd.Heartbeat.RTT)

			ack := proto.HeartbeatAck{
				Ver:        proto.Version,
				Type:       proto.TypeHeartbeat,
				ServerTime: cmd.Heartbeat.ReceivedAt.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  cmd.Heartbeat.RTT.Milliseconds(),
			}
			data, err := json.Marshal(ack)
			if err != nil {
				h.logger.Printf("failed to marshal heartbeat ack for %s: %v", playerID, err)
				continue
			}
			if err := session.Send(data); err != nil {
				h.drop(ctx, room, playerID, session, pub, actor, "write-failed")
				return
			}
			continue
		}

		seq := msg.Seq

		writeJSON := func(v any) bool {
			data, err := json.Marshal(v)
			if err != nil {
				h.logger.Printf("failed to marshal response for %s: %v", playerID, err)
				return true
			}
			if err := session.Send(data); err != nil {
				h.drop(ctx, room, playerID, session, pub, actor, "write-failed")
				return false
			}
			return true
		}

		sendDuplicateAck := func() bool {
			if seq == 0 {
				return true
			}
			return writeJSON(proto.CommandAck{Ver: proto.Version, Type: proto.TypeCommandAck, Seq: seq})
		}

		sendCommandAck := func(cmd game.Command) bool {
			if seq == 0 {
				return true
			}
			ack := proto.CommandAck{Ver: proto.Version, Type: proto.TypeCommandAck, Seq: seq}
			if cmd.OriginTick > 0 {
				ack.Tick = cmd.OriginTick
			}
			if !writeJSON(ack) {
				return false
			}
			session.StoreLastCommandSeq(seq)
			return true
		}

		sendCommandReject := func(reason string, retry bool) bool {
			if seq == 0 {
				return true
			}
			reject := proto.CommandReject{
				Ver:    proto.Version,
				Type:   proto.TypeCommandReject,
				Seq:    seq,
				Reason: reason,
			}
			if retry {
				reject.Retry = true
			}
			return writeJSON(reject)
		}

		if seq > 0 {
			if last := session.LastCommandSeq(); last > 0 && seq <= last {
				if !sendDuplicateAck() {
					return
				}
				continue
			}
		}

		cmd, ok, reason := intake.StageClientCommand(cmdCtx, playerID, msg)
		if ok {
			if !sendCommandAck(cmd) {
				return
			}
			continue
		}

		retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
		if !sendCommandReject(reason, retry) {
			return
		}
		switch reason {
		case intake.CommandRejectInvalidAction:
			h.logger.Printf("rejecting %q from %s: %s", msg.Type, playerID, reason)
			netlog.MessageRejected(ctx, pub, room.Tick(), actor,
				netlog.MessageRejectedPayload{MessageType: msg.Type, Reason: reason}, nil)
		case intake.CommandRejectUnknownActor:
			h.logger.Printf("%s ignored for unknown player %s", msg.Type, playerID)
		}
	}
}

// drop detaches the session and closes it. Only the goroutine that wins the
// detach publishes the disconnect, so a broadcast write failure and a read
// pump exit never double-report.
func (h *Handler) drop(ctx context.Context, room *server.Room, playerID string, session *Session, pub logging.Publisher, actor logging.EntityRef, reason string) {
	if room.Detach(playerID, session) {
		netlog.ClientDisconnected(ctx, pub, room.Tick(), actor,
			netlog.ClientDisconnectedPayload{Reason: reason}, nil)
	}
	session.Close(reason)
}
