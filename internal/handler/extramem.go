package handler

import (
	"context"
	"encoding/binary"
	"strconv"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

// tetrisStockMem is the blob the tetris client expects for a user that
// has never uploaded one: "REGATETRIS 1.00" plus its settings block,
// byte for byte what the shipped service served.
var tetrisStockMem = []byte{
	0x52, 0x45, 0x47, 0x41, 0x54, 0x45, 0x54, 0x52,
	0x49, 0x53, 0x20, 0x31, 0x2E, 0x30, 0x30, 0x00,
	0x0C, 0x02, 0x02, 0x00, 0x01, 0x00, 0x04, 0x00,
	0x02, 0x00, 0x00, 0x00,
}

// blobKey is the persistence key for a player's extra memory: the
// key-file user set at login, or the handle when no user is known.
func blobKey(p *world.Player) string {
	if p.User != "" {
		return p.User
	}
	return p.Name
}

// HandleGetExtraMem streams a slice of a user's extra memory blob:
// "<handle> <offset> <length>". The handle is resolved to its owner's
// key-file user when that player is online. A user with nothing stored
// gets the stock blob so the client still boots its settings.
func HandleGetExtraMem(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	tokens := args(req)
	if len(tokens) != 3 {
		p.Disconnect(true)
		return
	}
	name := p.ToUTF8([]byte(tokens[0]))
	offset, _ := strconv.Atoi(tokens[1])
	length, _ := strconv.Atoi(tokens[2])

	key := name
	if owner := p.Server.GetPlayer(name, nil); owner != nil && owner.User != "" {
		key = owner.User
	}
	blob, err := deps.ExtraMem.Get(ctx, p.Server.Title.ID, key)
	if err != nil {
		deps.Log.Error("load extra mem", zap.String("user", key), zap.Error(err))
	}
	if len(blob) == 0 {
		blob = tetrisStockMem
	}
	p.SendExtraMem(blob, offset, length)
}

// HandleExtraMemStart opens an upload: the payload carries the target
// offset and total length as two 16-bit words.
func HandleExtraMemStart(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if len(req.Payload) < 4 {
		deps.Log.Warn("extra-mem start: short payload", zap.Int("size", len(req.Payload)))
		p.Send(protocol.S_OPCODE_EXTRAMEM_ACK, nil)
		return
	}
	offset := int(binary.LittleEndian.Uint16(req.Payload[0:2]))
	length := int(binary.LittleEndian.Uint16(req.Payload[2:4]))
	p.Xfer = world.XferCursor{Offset: offset, End: offset + length, Active: true}
	p.Send(protocol.S_OPCODE_EXTRAMEM_ACK, nil)
}

// HandleExtraMemTransfer stores one chunk at the upload cursor and
// advances it.
func HandleExtraMemTransfer(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	if p.Xfer.Active && len(req.Payload) > 0 {
		chunk := req.Payload
		if remain := p.Xfer.End - p.Xfer.Offset; len(chunk) > remain {
			chunk = chunk[:remain]
		}
		if len(chunk) > 0 {
			err := deps.ExtraMem.Put(ctx, p.Server.Title.ID, blobKey(p), p.Xfer.Offset, chunk)
			if err != nil {
				deps.Log.Error("store extra mem",
					zap.String("user", blobKey(p)), zap.Error(err))
			}
			p.Xfer.Offset += len(chunk)
		}
	}
	p.Send(protocol.S_OPCODE_EXTRAMEM_ACK, nil)
}

// HandleExtraMemEnd closes the upload cursor.
func HandleExtraMemEnd(ctx context.Context, p *world.Player, req *net.LobbyRequest, deps *Deps) {
	p.Xfer = world.XferCursor{}
	p.Send(protocol.S_OPCODE_EXTRAMEM_ACK, nil)
}
