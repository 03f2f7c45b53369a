package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// HandleLogin binds the chosen handle to the connection. The handle is
// the unique key for the whole title, so an existing holder is kicked,
// as is any other connection from the same address unless the IP check
// is disabled for LAN play.
func HandleLogin(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	name := p.ToUTF8([]byte(tokens[0]))
	if name == "" {
		p.SendText(protocol.S_OPCODE_NAME_IN_USE, "Empty handle")
		p.Send(protocol.S_OPCODE_BYE, nil)
		p.Send(protocol.S_OPCODE_DISCONNECT_ACK, nil)
		p.Disconnect(false)
		return
	}

	if exists := p.Server.GetPlayer(name, p); exists != nil {
		deps.Log.Info("handle takeover",
			zap.String("handle", name), zap.String("game", p.Server.Title.Code))
		exists.Name = ""
		exists.Disconnect(true)
	}

	if !deps.Config.DisableIPCheck {
		if exists := p.Server.FindByIP(p); exists != nil {
			deps.Log.Info("duplicate address",
				zap.String("handle", exists.Name), zap.String("ip", p.IP().String()))
			exists.Name = ""
			exists.Disconnect(true)
		}
	}

	p.Name = name

	now := time.Now()
	p.SendText(protocol.S_OPCODE_LOGIN_OK, fmt.Sprintf("0100 0102 %d:%d:%d:%d:%d:%d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second()))
}

// HandleLogin2 finishes the login: the first argument is the key-file
// user name, the rest (game id, console id) is ignored.
func HandleLogin2(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if tokens[0] != "" {
		p.User = tokens[0]
	}
	p.SendText(protocol.S_OPCODE_LOBBY_INFO, "LOB 999 999 AAA AAA")
	p.SendText(protocol.S_OPCODE_MOTD, p.Server.MOTD)
	p.Send(protocol.S_OPCODE_EXTRAMEM_READY, nil)
}

// HandleDisconnect is the clean logout: farewell packets, then
// teardown without the kick notification.
func HandleDisconnect(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.Send(protocol.S_OPCODE_BYE, nil)
	p.Send(protocol.S_OPCODE_DISCONNECT_ACK, nil)
	p.Disconnect(false)
}

func HandleReconnect(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.Send(protocol.S_OPCODE_RECONNECT_OK, nil)
}

func HandlePing(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.Send(protocol.S_OPCODE_PONG, nil)
}
