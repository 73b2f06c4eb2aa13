package ws

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/acrobash/server/internal/game"
)

// ConnCtx rides on each socket connection: the registered player identity
// (an immutable copy; the engine owns the in-game seat) and the room the
// connection currently belongs to.
type ConnCtx struct {
	Player game.Player
	GameID string
}

type Server struct {
	engine *game.Engine
	reg    *game.Registry
	io     *socketio.Server
}

func New(reg *game.Registry) *Server {
	return &Server{reg: reg}
}

// SetEngine breaks the construction cycle: the engine needs this server as
// its broadcaster, and this server needs the engine for every handler.
func (srv *Server) SetEngine(e *game.Engine) { srv.engine = e }

// GameState implements game.Broadcaster.
func (srv *Server) GameState(gameID string, state game.Snapshot) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", gameID, "gameStateUpdate", state)
}

// Mount attaches the Socket.IO server with all game event handlers to the
// given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "playerLogin", func(s socketio.Conn, payload struct {
		Name       string          `json:"name"`
		Generation game.Generation `json:"generation"`
		Region     string          `json:"region"`
	}) game.Player {
		p := game.NewPlayer(s.ID(), payload.Name, payload.Generation, payload.Region)
		s.SetContext(&ConnCtx{Player: p})
		log.Info().Str("sid", s.ID()).Str("name", p.Name).Msg("playerLogin")
		return p
	})

	io.OnEvent("/", "createGame", func(s socketio.Conn, payload struct {
		IsPrivate bool           `json:"isPrivate"`
		LobbyType game.LobbyType `json:"lobbyType"`
	}) {
		ctx, ok := connCtx(s)
		if !ok {
			return
		}
		g := srv.engine.CreateGame(ctx.Player, payload.IsPrivate, payload.LobbyType)
		ctx.GameID = g.ID
		s.Join(g.ID)
		// The join broadcast fired before this connection entered the
		// room; push the initial state directly.
		if snap, ok := srv.engine.Snapshot(g.ID); ok {
			s.Emit("gameStateUpdate", snap)
		}
		log.Info().Str("sid", s.ID()).Str("game", g.ID).Msg("createGame")
	})

	io.OnEvent("/", "joinGame", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) {
		ctx, ok := connCtx(s)
		if !ok {
			return
		}
		gameID, err := srv.engine.JoinByCode(payload.GameID, ctx.Player)
		switch err {
		case nil:
			ctx.GameID = gameID
			s.Join(gameID)
			if snap, ok := srv.engine.Snapshot(gameID); ok {
				s.Emit("gameStateUpdate", snap)
			}
			log.Info().Str("sid", s.ID()).Str("game", gameID).Msg("joinGame")
		case game.ErrGameNotFound:
			s.Emit("gameNotFound", fmt.Sprintf("Game with code %s not found.", payload.GameID))
		case game.ErrLobbyFull:
			s.Emit("lobbyFull", "The lobby you have tried to enter is full.")
		case game.ErrGameInProgress:
			s.Emit("gameInProgress", "This game has already started.")
		}
	})

	io.OnEvent("/", "addAI", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.AddBot(payload.GameID, ctx.Player.ID)
		}
	})

	io.OnEvent("/", "removeAI", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.RemoveBot(payload.GameID, ctx.Player.ID)
		}
	})

	io.OnEvent("/", "startGameRequest", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) {
		if ctx, ok := connCtx(s); ok {
			log.Info().Str("sid", s.ID()).Str("game", payload.GameID).Msg("startGameRequest")
			srv.engine.StartGame(payload.GameID, ctx.Player.ID)
		}
	})

	io.OnEvent("/", "leaveGame", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) {
		ctx, ok := connCtx(s)
		if !ok {
			return
		}
		srv.engine.Leave(payload.GameID, ctx.Player.ID)
		s.Leave(payload.GameID)
		ctx.GameID = ""
	})

	io.OnEvent("/", "submitBackronym", func(s socketio.Conn, payload struct {
		GameID    string `json:"gameId"`
		Backronym string `json:"backronym"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.Submit(payload.GameID, ctx.Player.ID, payload.Backronym)
		}
	})

	io.OnEvent("/", "castVote", func(s socketio.Conn, payload struct {
		GameID        string `json:"gameId"`
		VotedPlayerID string `json:"votedPlayerId"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.CastVote(payload.GameID, ctx.Player.ID, payload.VotedPlayerID)
		}
	})

	io.OnEvent("/", "submitFaceoff", func(s socketio.Conn, payload struct {
		GameID    string `json:"gameId"`
		Backronym string `json:"backronym"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.SubmitFaceoff(payload.GameID, ctx.Player.ID, payload.Backronym)
		}
	})

	io.OnEvent("/", "castFaceoffVote", func(s socketio.Conn, payload struct {
		GameID        string `json:"gameId"`
		VotedPlayerID string `json:"votedPlayerId"`
	}) {
		if ctx, ok := connCtx(s); ok {
			srv.engine.CastFaceoffVote(payload.GameID, ctx.Player.ID, payload.VotedPlayerID)
		}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := connCtx(s); ok && ctx.Player.ID != "" {
			// Disconnect is an implicit leave.
			if g := srv.reg.FindByPlayer(ctx.Player.ID); g != nil {
				srv.engine.Leave(g.ID, ctx.Player.ID)
			}
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(io)
	r.GET("/socket.io/*any", gin.WrapH(handler))
	r.POST("/socket.io/*any", gin.WrapH(handler))
	r.OPTIONS("/socket.io/*any", gin.WrapH(handler))

	return io
}

func connCtx(s socketio.Conn) (*ConnCtx, bool) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx == nil || ctx.Player.ID == "" {
		return nil, false
	}
	return ctx, true
}
