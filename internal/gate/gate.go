// Package gate implements the pre-authentication broker every client
// talks to first: it resolves the game disc's token to a lobby server
// and manages the user's handle directory.
package gate

import (
	"context"
	"errors"
	stdnet "net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/codec"
	"github.com/iwango/server/internal/game"
	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/persist"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// syntheticUsers are emulator-default key files that share one user
// name. They get a throwaway PlayerN handle instead of a directory
// entry, so several of them can coexist on one title.
var syntheticUsers = map[string]bool{
	"flycast1": true,
	"flycast2": true,
	"dream":    true,
}

// Conn is the reply side of a gate connection.
type Conn interface {
	Send(data []byte)
	LocalIP() stdnet.IP
}

// Gate answers the ASCII request protocol on port 9500.
type Gate struct {
	titles   *game.TitleTable
	registry *world.Registry
	handles  *persist.HandleRepo
	log      *zap.Logger
}

func New(titles *game.TitleTable, registry *world.Registry, handles *persist.HandleRepo, log *zap.Logger) *Gate {
	return &Gate{
		titles:   titles,
		registry: registry,
		handles:  handles,
		log:      log.Named("gate"),
	}
}

// HandleRequest processes one raw request frame. Gate requests carry
// no opcode, just space-separated ASCII tokens; unknown commands are
// ignored like the protocol expects.
func (g *Gate) HandleRequest(ctx context.Context, conn Conn, frame []byte) {
	request := string(frame)
	g.log.Info("request", zap.String("payload", request))
	tokens := strings.Split(request, " ")

	switch tokens[0] {
	case "REQUEST_FILTER":
		g.requestFilter(conn, tokens)
	case "HANDLE_LIST_GET":
		g.handleListGet(ctx, conn, tokens)
	case "HANDLE_ADD":
		g.handleAdd(ctx, conn, tokens)
	case "HANDLE_REPLACE":
		g.handleReplace(ctx, conn, tokens)
	case "HANDLE_DELETE":
		g.handleDelete(ctx, conn, tokens)
	default:
		g.log.Warn("unknown request", zap.String("command", tokens[0]))
	}
}

func (g *Gate) send(conn Conn, opcode uint16, payload []byte) {
	conn.Send(net.Reply(opcode, payload))
}

func (g *Gate) sendText(conn Conn, opcode uint16, text string) {
	g.send(conn, opcode, []byte(text))
}

// requestFilter advertises the lobby server for the client's title:
// begin marker, one server line when the title is hosted, end marker.
func (g *Gate) requestFilter(conn Conn, tokens []string) {
	if len(tokens) < 2 {
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	title := g.titles.Identify(tokens[1])

	g.send(conn, protocol.G_OPCODE_FILTER_BEGIN, nil)
	if server := g.registry.ForTitle(title); server != nil {
		line := server.Name + " " + conn.LocalIP().String() + " " +
			strconv.Itoa(title.Port) + " 1"
		g.sendText(conn, protocol.G_OPCODE_FILTER_SERVER, line)
	}
	g.send(conn, protocol.G_OPCODE_FILTER_END, nil)
}

func (g *Gate) handleListGet(ctx context.Context, conn Conn, tokens []string) {
	if len(tokens) < 4 {
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	user := tokens[1]
	title := g.titles.Identify(tokens[2])

	if syntheticUsers[user] {
		if name := g.assignPlayerN(title); name != "" {
			g.send(conn, protocol.G_OPCODE_HANDLE_LIST,
				append([]byte("1"), codec.Encode(name, title.FullWidth)...))
		} else {
			g.send(conn, protocol.G_OPCODE_HANDLE_LIST, nil)
		}
		return
	}

	handles, err := g.handles.List(ctx, title.ID, user, DefaultHandle(title, user))
	if err != nil {
		g.log.Error("list handles", zap.String("user", user), zap.Error(err))
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	var payload []byte
	for i, h := range handles {
		if i > 0 {
			payload = append(payload, ' ')
		}
		payload = append(payload, []byte(strconv.Itoa(i+1))...)
		payload = append(payload, codec.Encode(h, title.FullWidth)...)
	}
	g.send(conn, protocol.G_OPCODE_HANDLE_LIST, payload)
}

func (g *Gate) handleAdd(ctx context.Context, conn Conn, tokens []string) {
	if len(tokens) < 5 {
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	user := tokens[1]
	if syntheticUsers[user] {
		g.send(conn, protocol.G_OPCODE_NAME_IN_USE1, nil)
		return
	}
	title := g.titles.Identify(tokens[2])
	index, _ := strconv.Atoi(tokens[3])
	handle := codec.Decode([]byte(tokens[4]), false)

	switch err := g.handles.Create(ctx, title.ID, user, index, handle); {
	case err == nil:
		g.send(conn, protocol.G_OPCODE_HANDLE_ADDED,
			append([]byte("1 "), codec.Encode(handle, title.FullWidth)...))
	case errors.Is(err, persist.ErrAlreadyExists):
		g.send(conn, protocol.G_OPCODE_NAME_IN_USE1, nil)
	default:
		g.log.Error("create handle", zap.String("user", user), zap.Error(err))
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
	}
}

func (g *Gate) handleReplace(ctx context.Context, conn Conn, tokens []string) {
	if len(tokens) < 5 {
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	user := tokens[1]
	if syntheticUsers[user] {
		g.send(conn, protocol.G_OPCODE_NAME_IN_USE1, nil)
		return
	}
	title := g.titles.Identify(tokens[2])
	index, _ := strconv.Atoi(tokens[3])
	handle := codec.Decode([]byte(tokens[4]), false)

	switch err := g.handles.Replace(ctx, title.ID, user, index, handle); {
	case err == nil:
		g.send(conn, protocol.G_OPCODE_HANDLE_REPLACED,
			append([]byte("1 "), codec.Encode(handle, title.FullWidth)...))
	case errors.Is(err, persist.ErrAlreadyExists):
		g.send(conn, protocol.G_OPCODE_NAME_IN_USE1, nil)
	default:
		g.log.Error("replace handle", zap.String("user", user), zap.Error(err))
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
	}
}

func (g *Gate) handleDelete(ctx context.Context, conn Conn, tokens []string) {
	if len(tokens) < 4 {
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	user := tokens[1]
	title := g.titles.Identify(tokens[2])
	index, _ := strconv.Atoi(tokens[3])

	if err := g.handles.Delete(ctx, title.ID, user, index); err != nil {
		g.log.Error("delete handle", zap.String("user", user), zap.Error(err))
		g.send(conn, protocol.G_OPCODE_ERROR1, nil)
		return
	}
	g.send(conn, protocol.G_OPCODE_HANDLE_DELETED, nil)
}

// assignPlayerN picks the first PlayerN (N in 1..99) not currently
// connected to the title's lobby server.
func (g *Gate) assignPlayerN(title *game.Title) string {
	server := g.registry.ForTitle(title)
	if server == nil {
		return ""
	}
	for i := 1; i < 100; i++ {
		name := "Player" + strconv.Itoa(i)
		if server.GetPlayer(name, nil) == nil {
			return name
		}
	}
	return ""
}

// DefaultHandle derives the handle a fresh user gets: protocol
// delimiters replaced with underscores, clipped to the title's
// maximum, and suffixed for titles that brand their players.
func DefaultHandle(title *game.Title, user string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '#', '&', '*', '=':
			return '_'
		}
		return r
	}, user)

	max := title.MaxHandleLen
	if title.HandleSuffix != "" {
		budget := max - len(title.HandleSuffix)
		if len(name) > budget {
			name = name[:budget]
		}
		return name + title.HandleSuffix
	}
	if len(name) > max {
		name = name[:max]
	}
	return name
}
