package handler

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// HandleEnterLobby joins the named lobby, creating it on demand. The
// payload is "<name> <capacity>" with an optional trailing lobby type,
// which some clients send and none of the lobby logic needs. The
// client gets a creation notice for a new lobby and a refusal when the
// target is full.
func HandleEnterLobby(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if len(tokens) < 2 || len(tokens) > 3 {
		deps.Log.Warn("enter lobby: bad arg count", zap.Int("count", len(tokens)))
		return
	}
	name := p.ToUTF8([]byte(tokens[0]))
	capacity, _ := strconv.Atoi(tokens[1])

	lobby := p.Server.GetLobby(name)
	if lobby == nil {
		lobby = p.Server.CreateLobby(name, capacity)
		if lobby == nil {
			deps.Log.Warn("enter lobby: create failed",
				zap.String("lobby", name), zap.Int("capacity", capacity))
			return
		}
		p.SendText(protocol.S_OPCODE_LOBBY_CREATED, lobby.Name)
	}
	if lobby.Full() {
		p.Send(protocol.S_OPCODE_LOBBY_FULL, nil)
		return
	}
	p.JoinLobby(lobby)
}

func HandleLeaveLobby(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.LeaveLobby()
}

// HandleGetLobbies sends one entry per lobby, then the end marker.
func HandleGetLobbies(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	for _, l := range p.Server.Lobbies() {
		p.SendText(protocol.S_OPCODE_LOBBY_ENTRY, l.ListEntry())
	}
	p.Send(protocol.S_OPCODE_LOBBY_END, nil)
}

// HandleRefreshPlayers sends player records: every member of the
// requester's lobby when the argument is empty, otherwise the one
// named player. Always terminated with the end marker.
func HandleRefreshPlayers(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if tokens[0] == "" {
		if p.Lobby != nil {
			for _, m := range p.Lobby.Members {
				p.Send(protocol.S_OPCODE_PLAYER_ENTRY, m.Record())
			}
		}
	} else {
		name := p.ToUTF8([]byte(tokens[0]))
		if found := p.Server.GetPlayer(name, nil); found != nil {
			p.Send(protocol.S_OPCODE_PLAYER_ENTRY, found.Record())
		}
	}
	p.Send(protocol.S_OPCODE_PLAYER_END, nil)
}

// HandleRefreshUsers sends the record of every member of the named
// lobby, then the end marker.
func HandleRefreshUsers(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	name := p.ToUTF8(req.Payload)
	if lobby := p.Server.GetLobby(name); lobby != nil {
		for _, m := range lobby.Members {
			p.Send(protocol.S_OPCODE_USER_ENTRY, m.Record())
		}
	}
	p.Send(protocol.S_OPCODE_USER_END, nil)
}

// HandleChatLobby relays a lobby chat line. The payload is
// "<handle> <message>"; everything after the first space is the
// message.
func HandleChatLobby(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Lobby == nil {
		return
	}
	raw := string(req.Payload)
	message := raw[strings.IndexByte(raw, ' ')+1:]
	p.Lobby.SendChat(p.Name, p.ToUTF8([]byte(message)))
}

// HandleCTCPMessage relays a direct message to a single player:
// "<target> <source> <message>" in, "<source> <message>" out.
func HandleCTCPMessage(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if len(tokens) < 3 {
		deps.Log.Warn("ctcp: bad arg count", zap.Int("count", len(tokens)))
		return
	}
	target := p.Server.GetPlayer(p.ToUTF8([]byte(tokens[0])), nil)
	if target == nil {
		return
	}
	source := p.ToUTF8([]byte(tokens[1]))
	message := p.ToUTF8([]byte(strings.Join(tokens[2:], " ")))
	target.SendText(protocol.S_OPCODE_CTCPMSG, source+" "+message)
}

// HandleSearch looks a handle up across the whole title. A hit reports
// the server and, when the player sits in a lobby, the lobby; the end
// marker always follows.
func HandleSearch(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	name := p.ToUTF8(req.Payload)
	if found := p.Server.GetPlayer(name, nil); found != nil {
		line := found.Name + " !" + p.Server.Name + " "
		if found.Lobby != nil {
			line += "!" + found.Lobby.Name
		} else {
			line += "#"
		}
		p.SendText(protocol.S_OPCODE_SEARCH_RESULT, line)
	}
	p.SendText(protocol.S_OPCODE_SEARCH_END, "1")
}

// HandleSharedMemPlayer stores the player's 30-byte shared memory; the
// payload is binary, not text.
func HandleSharedMemPlayer(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.SetSharedMem(req.Payload)
}
