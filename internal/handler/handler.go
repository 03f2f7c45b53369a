// Package handler dispatches lobby protocol commands. Each opcode maps
// to one handler function; the dispatcher runs on the event loop
// goroutine so handlers touch the world without locking.
package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/config"
	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/persist"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	Config   *config.Config
	ExtraMem *persist.ExtraMemRepo
	Log      *zap.Logger
}

// Func handles one decoded client request for a player.
type Func func(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps)

// Registry maps client opcodes to their handlers.
type Registry struct {
	handlers map[uint16]Func
	deps     *Deps
	log      *zap.Logger
}

func NewRegistry(deps *Deps) *Registry {
	r := &Registry{
		handlers: make(map[uint16]Func),
		deps:     deps,
		log:      deps.Log.Named("dispatch"),
	}
	r.register(protocol.C_OPCODE_LOGIN, HandleLogin)
	r.register(protocol.C_OPCODE_LOGIN2, HandleLogin2)
	r.register(protocol.C_OPCODE_SEND_LOG, handleNull)
	r.register(protocol.C_OPCODE_ENTR_LOBBY, HandleEnterLobby)
	r.register(protocol.C_OPCODE_DISCONNECT, HandleDisconnect)
	r.register(protocol.C_OPCODE_GET_LOBBIES, HandleGetLobbies)
	r.register(protocol.C_OPCODE_GET_GAMES, HandleGetGames)
	r.register(protocol.C_OPCODE_SELECT_GAME, HandleSelectGame)
	r.register(protocol.C_OPCODE_PING, HandlePing)
	r.register(protocol.C_OPCODE_SEARCH, HandleSearch)
	r.register(protocol.C_OPCODE_GET_LICENSE, HandleGetLicense)
	r.register(protocol.C_OPCODE_RECONNECT, HandleReconnect)
	r.register(protocol.C_OPCODE_GET_TEAMS, HandleGetTeams)
	r.register(protocol.C_OPCODE_REFRESH_PLAYERS, HandleRefreshPlayers)
	r.register(protocol.C_OPCODE_CHAT_LOBBY, HandleChatLobby)
	r.register(protocol.C_OPCODE_SHAREDMEM_PLAYER, HandleSharedMemPlayer)
	r.register(protocol.C_OPCODE_SHAREDMEM_TEAM, HandleSharedMemTeam)
	r.register(protocol.C_OPCODE_LEAVE_TEAM, HandleLeaveTeam)
	r.register(protocol.C_OPCODE_LAUNCH_REQUEST, HandleLaunchRequest)
	r.register(protocol.C_OPCODE_CHAT_TEAM, HandleChatTeam)
	r.register(protocol.C_OPCODE_CREATE_TEAM, HandleCreateTeam)
	r.register(protocol.C_OPCODE_JOIN_TEAM, HandleJoinTeam)
	r.register(protocol.C_OPCODE_SEND_CTCPMSG, HandleCTCPMessage)
	r.register(protocol.C_OPCODE_GET_EXTRAMEM, HandleGetExtraMem)
	r.register(protocol.C_OPCODE_REGIST_EXTRAMEM_1, HandleExtraMemStart)
	r.register(protocol.C_OPCODE_REGIST_EXTRAMEM_2, HandleExtraMemTransfer)
	r.register(protocol.C_OPCODE_REGIST_EXTRAMEM_3, HandleExtraMemEnd)
	r.register(protocol.C_OPCODE_LEAVE_LOBBY, HandleLeaveLobby)
	r.register(protocol.C_OPCODE_LAUNCH_GAME, HandleLaunchGame)
	r.register(protocol.C_OPCODE_REFRESH_USERS, HandleRefreshUsers)
	return r
}

func (r *Registry) register(opcode uint16, fn Func) {
	r.handlers[opcode] = fn
}

// Dispatch routes one request. Unknown opcodes are logged and ignored;
// a panicking handler loses its player, not the server.
func (r *Registry) Dispatch(ctx context.Context, p *world.Player, req *net.LobbyRequest) {
	fn, ok := r.handlers[req.Opcode]
	if !ok {
		r.log.Warn("unknown opcode",
			zap.Uint16("opcode", req.Opcode),
			zap.String("player", p.Name))
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic",
				zap.Uint16("opcode", req.Opcode),
				zap.String("player", p.Name),
				zap.Any("panic", rec))
			p.Disconnect(true)
		}
	}()
	fn(ctx, p, req, r.deps)
}

// args splits the payload on spaces without decoding; individual
// handlers decode the tokens that carry text.
func args(req *net.LobbyRequest) []string {
	return strings.Split(string(req.Payload), " ")
}

func handleNull(context.Context, *world.Player, *net.LobbyRequest, *Deps) {}
