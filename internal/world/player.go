// Package world is the domain model: title servers own lobbies and
// players, lobbies own teams, teams hold back-references to players.
// Everything here runs on the event loop goroutine; there is no
// locking and none is needed.
package world

import (
	stdnet "net"
	"strconv"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/codec"
	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/protocol"
)

// SharedMemSize is the fixed size of a player's shared memory blob.
const SharedMemSize = 0x1E

// Conn is the slice of the network session a player drives. Tests
// substitute a capture implementation.
type Conn interface {
	Send(data []byte)
	Close()
	RemoteIP() stdnet.IP
}

// XferCursor tracks a chunked extra-mem upload in progress.
type XferCursor struct {
	Offset int
	End    int
	Active bool
}

// Player is the runtime state of one lobby connection.
type Player struct {
	Name      string // UTF-8 handle, set by LOGIN
	User      string // key-file user name, set by LOGIN2
	Flags     int
	SharedMem [SharedMemSize]byte

	Server *TitleServer
	Lobby  *Lobby
	Team   *Team
	Xfer   XferCursor

	conn         Conn
	disconnected bool
	log          *zap.Logger
}

func NewPlayer(conn Conn, server *TitleServer, log *zap.Logger) *Player {
	p := &Player{
		Server: server,
		conn:   conn,
		log:    log,
	}
	server.AddPlayer(p)
	return p
}

// Send queues one reply packet.
func (p *Player) Send(opcode uint16, payload []byte) {
	p.conn.Send(net.Reply(opcode, payload))
}

// SendText queues one reply whose payload is text, encoded for this
// player's title.
func (p *Player) SendText(opcode uint16, text string) {
	p.Send(opcode, p.FromUTF8(text))
}

// ToUTF8 decodes on-wire text for this player's title.
func (p *Player) ToUTF8(raw []byte) string {
	return codec.Decode(raw, p.Server.Title.FullWidth)
}

// FromUTF8 encodes text for this player's title.
func (p *Player) FromUTF8(s string) []byte {
	return codec.Encode(s, p.Server.Title.FullWidth)
}

// IP returns the peer address, or nil after the connection is gone.
func (p *Player) IP() stdnet.IP {
	return p.conn.RemoteIP()
}

// ipBytes returns the 4 IPv4 address bytes, zero when unknown.
func (p *Player) ipBytes() [4]byte {
	var out [4]byte
	if ip := p.IP().To4(); ip != nil {
		copy(out[:], ip)
	}
	return out
}

// Disconnect unlinks the player from its team, lobby and server, in
// that order, then closes the connection. Idempotent. sendDC controls
// whether the client is told to drop (a kicked duplicate gets the
// packet, a client that asked to leave already got its own farewell).
func (p *Player) Disconnect(sendDC bool) {
	if p.disconnected {
		return
	}
	p.disconnected = true

	if sendDC {
		p.Send(protocol.S_OPCODE_SERVER_DC, nil)
	}

	if p.Team != nil {
		p.Team.RemovePlayer(p)
		p.Team = nil
	}
	if p.Lobby != nil {
		p.Lobby.RemovePlayer(p)
		p.Lobby = nil
	}
	p.Server.RemovePlayer(p)

	p.conn.Close()
}

// Disconnected reports whether teardown already ran.
func (p *Player) Disconnected() bool {
	return p.disconnected
}

// JoinLobby links the player into a lobby and runs the join fan-out.
func (p *Player) JoinLobby(l *Lobby) {
	if l == nil {
		return
	}
	p.Lobby = l
	l.AddPlayer(p)
}

// LeaveLobby unlinks the player from its current lobby.
func (p *Player) LeaveLobby() {
	if p.Lobby == nil {
		p.log.Warn("leave lobby: not in a lobby", zap.String("player", p.Name))
		return
	}
	p.Lobby.RemovePlayer(p)
	p.Lobby = nil
}

// CreateTeam makes a new team in the current lobby with this player as
// host. A duplicate team name gets the name-in-use reply.
func (p *Player) CreateTeam(name string, capacity int, kind string) {
	if p.Lobby == nil {
		p.log.Warn("create team: not in a lobby", zap.String("player", p.Name))
		return
	}
	if p.Lobby.GetTeam(name) != nil {
		p.log.Warn("create team: name in use", zap.String("team", name))
		p.Send(protocol.S_OPCODE_NAME_IN_USE, nil)
		return
	}
	p.Team = p.Lobby.CreateTeam(p, name, capacity, kind)
}

// JoinTeam adds the player to a named team in the current lobby. A
// full team refuses silently, which is what the clients expect.
func (p *Player) JoinTeam(name string) {
	if p.Lobby == nil {
		p.log.Warn("join team: not in a lobby", zap.String("player", p.Name))
		return
	}
	t := p.Lobby.GetTeam(name)
	if t == nil {
		p.log.Warn("join team: no such team", zap.String("team", name))
		return
	}
	if t.AddPlayer(p) {
		p.Team = t
	}
}

// LeaveTeam removes the player from its current team.
func (p *Player) LeaveTeam() {
	if p.Lobby == nil || p.Team == nil {
		p.log.Warn("leave team: not in a team", zap.String("player", p.Name))
		return
	}
	p.Team.RemovePlayer(p)
	p.Team = nil
}

// SetSharedMem overwrites the 30-byte shared memory and fans the
// update out to the player's team.
func (p *Player) SetSharedMem(data []byte) {
	if len(data) != SharedMemSize {
		p.log.Warn("invalid player shared-mem size, ignored", zap.Int("size", len(data)))
		return
	}
	copy(p.SharedMem[:], data)
	if p.Team != nil {
		p.Team.SendSharedMemPlayer(p)
	}
}

// Record builds the player broadcast record used by the 0x30 replies:
// a length-prefixed ASCII description, a 0x01 separator, the 30-byte
// shared memory, then the raw IPv4 address.
func (p *Player) Record() []byte {
	var desc []byte
	if p.Lobby != nil {
		desc = append(desc, p.FromUTF8(p.Lobby.Name)...)
	} else {
		desc = append(desc, '#')
	}
	desc = append(desc, ' ')
	if p.Team != nil && p.Team.Host == p {
		desc = append(desc, '*')
	}
	desc = append(desc, p.FromUTF8(p.Name)...)
	desc = append(desc, []byte(" "+strconv.Itoa(p.Flags)+" ")...)
	if p.Team != nil {
		desc = append(desc, '*')
		desc = append(desc, p.FromUTF8(p.Team.Name)...)
	} else {
		desc = append(desc, '#')
	}
	desc = append(desc, []byte(" *"+p.Server.Title.WireName)...)

	ip := p.ipBytes()
	data := make([]byte, 0, 1+len(desc)+1+SharedMemSize+4)
	data = append(data, byte(len(desc)))
	data = append(data, desc...)
	data = append(data, 1)
	data = append(data, p.SharedMem[:]...)
	data = append(data, ip[:]...)
	return data
}

// SendExtraMem streams one slice of an extra-mem blob to the client as
// the begin / data / end triple.
func (p *Player) SendExtraMem(blob []byte, offset, length int) {
	if offset < 0 || offset > len(blob) {
		offset = len(blob)
	}
	if length < 0 || offset+length > len(blob) {
		length = len(blob) - offset
	}
	payload := make([]byte, 2+length)
	payload[0] = byte(length)
	payload[1] = byte(length >> 8)
	copy(payload[2:], blob[offset:offset+length])

	p.Send(protocol.S_OPCODE_EXTRAMEM_BEGIN, nil)
	p.Send(protocol.S_OPCODE_EXTRAMEM_DATA, payload)
	p.Send(protocol.S_OPCODE_EXTRAMEM_END, nil)
}
