package handler

import (
	"context"

	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// HandleGetGames lists the games this server hosts. One per server.
func HandleGetGames(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.SendText(protocol.S_OPCODE_GAME_ENTRY, "1 "+p.Server.Title.WireName)
	p.Send(protocol.S_OPCODE_GAME_END, nil)
}

// HandleSelectGame confirms the game choice back to the client.
func HandleSelectGame(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	p.SendText(protocol.S_OPCODE_GAME_SELECTED, p.Name+" "+tokens[0])
}

// HandleGetLicense answers with the placeholder license string the
// clients accept.
func HandleGetLicense(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.SendText(protocol.S_OPCODE_LICENSE, "ABCDEFGHI")
}
