package handler

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// HandleGetTeams lists every team in the requester's lobby, then the
// end marker.
func HandleGetTeams(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Lobby != nil {
		for _, t := range p.Lobby.Teams {
			p.SendText(protocol.S_OPCODE_TEAM_ENTRY, t.ListEntry())
		}
	}
	p.Send(protocol.S_OPCODE_TEAM_END, nil)
}

// HandleCreateTeam makes a team in the current lobby:
// "<capacity> <name> <type>". A client sending this outside a lobby is
// broken and gets dropped.
func HandleCreateTeam(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if len(tokens) != 3 {
		deps.Log.Warn("create team: bad arg count", zap.Int("count", len(tokens)))
		return
	}
	capacity, _ := strconv.Atoi(tokens[0])
	if p.Lobby == nil {
		p.Disconnect(true)
		return
	}
	p.CreateTeam(p.ToUTF8([]byte(tokens[1])), capacity, tokens[2])
}

func HandleJoinTeam(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	p.JoinTeam(p.ToUTF8([]byte(tokens[0])))
}

func HandleLeaveTeam(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.LeaveTeam()
}

// HandleChatTeam relays a team chat line; the whole payload is the
// message.
func HandleChatTeam(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Team == nil {
		return
	}
	p.Team.SendChat(p.Name, p.ToUTF8(req.Payload))
}

// HandleSharedMemTeam updates the team's shared memory string:
// "<team> <mem>".
func HandleSharedMemTeam(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if len(tokens) < 2 {
		deps.Log.Warn("team shared-mem: bad arg count", zap.Int("count", len(tokens)))
		return
	}
	if p.Team != nil {
		p.Team.SetSharedMem(tokens[1])
	}
}

// HandleLaunchRequest hands the team off to its host: every member
// gets the host's address and the title's game port.
func HandleLaunchRequest(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Team == nil || p.Team.Host == nil {
		deps.Log.Warn("launch request: not in a team", zap.String("player", p.Name))
		return
	}
	title := p.Server.Title
	port := deps.Config.LaunchPort(title.Code, title.Port)
	p.Team.SendGameServer(p.Team.Host.IP().String(), port)
}

// HandleLaunchGame sends the requester the final roster with
// addresses.
func HandleLaunchGame(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Team == nil {
		deps.Log.Warn("launch game: not in a team", zap.String("player", p.Name))
		return
	}
	p.Team.LaunchGame(p)
}
