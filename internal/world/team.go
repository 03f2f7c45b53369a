package world

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/protocol"
)

// Team is a game party forming inside a lobby. The first member is
// the host until the host leaves, at which point the oldest remaining
// member takes over.
type Team struct {
	Name      string
	Capacity  int
	Flags     int
	SharedMem string
	Host      *Player
	Members   []*Player
	Lobby     *Lobby

	log *zap.Logger
}

// AddPlayer joins the team and announces the new roster to the whole
// lobby. A full team refuses without a reply, matching what clients
// expect.
func (t *Team) AddPlayer(p *Player) bool {
	if len(t.Members) >= t.Capacity {
		return false
	}
	t.Members = append(t.Members, p)

	var sb strings.Builder
	sb.WriteString(t.Name)
	for _, m := range t.Members {
		sb.WriteByte(' ')
		sb.WriteString(m.Name)
	}
	for _, m := range t.Lobby.Members {
		m.SendText(protocol.S_OPCODE_TEAM_JOINED, sb.String())
	}
	return true
}

// RemovePlayer drops a member, promotes a new host if needed and
// tells the lobby. An emptied team is deleted.
func (t *Team) RemovePlayer(p *Player) bool {
	idx := -1
	for i, m := range t.Members {
		if m == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.log.Warn("player not found in team",
			zap.String("player", p.Name), zap.String("team", t.Name))
		return false
	}
	t.Members = append(t.Members[:idx], t.Members[idx+1:]...)

	if t.Host == p && len(t.Members) > 0 {
		t.Host = t.Members[0]
	}

	for _, m := range t.Lobby.Members {
		m.SendText(protocol.S_OPCODE_TEAM_LEFT, t.Name+" "+p.Name)
	}

	if len(t.Members) == 0 {
		t.Lobby.DeleteTeam(t)
	}
	return true
}

// SendChat broadcasts a team chat line to team members only.
func (t *Team) SendChat(from, message string) {
	for _, m := range t.Members {
		m.SendText(protocol.S_OPCODE_CHAT_TEAM, from+" "+message)
	}
}

// SetSharedMem replaces the team's shared memory string and fans the
// update out to the members.
func (t *Team) SetSharedMem(mem string) {
	t.SharedMem = mem
	for _, m := range t.Members {
		m.SendText(protocol.S_OPCODE_TEAM_SHAREDMEM, t.Name+" "+t.SharedMem)
	}
}

// SendSharedMemPlayer fans one member's 30-byte shared memory out to
// the team as a shared-mem packet.
func (t *Team) SendSharedMemPlayer(owner *Player) {
	for _, m := range t.Members {
		m.Send(protocol.S_OPCODE_SHAREDMEM,
			SharedMemPacket(m.FromUTF8(owner.Name), owner.SharedMem[:]))
	}
}

// SendGameServer hands the team off to the game host: every member
// gets the address to connect to for the actual game session.
func (t *Team) SendGameServer(hostIP string, port int) {
	msg := hostIP + " " + strconv.Itoa(port)
	for _, m := range t.Members {
		m.SendText(protocol.S_OPCODE_GAME_SERVER, msg)
	}
}

// LaunchGame sends the requester the final roster with addresses:
// "<n> (<*?name> <ip>)×n", the host marked with an asterisk.
func (t *Team) LaunchGame(p *Player) {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(t.Members)))
	for _, m := range t.Members {
		sb.WriteByte(' ')
		if t.Host == m {
			sb.WriteByte('*')
		}
		sb.WriteString(m.Name)
		sb.WriteByte(' ')
		sb.WriteString(m.IP().String())
	}
	p.SendText(protocol.S_OPCODE_LAUNCH_GAME, sb.String())
}

// ListEntry renders this team's line of the team list reply:
// "<name> <members> <cap> <flags> <*mem|#> (<*|#><member>)× <game>".
func (t *Team) ListEntry() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(len(t.Members)))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(t.Capacity))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(t.Flags))
	sb.WriteByte(' ')
	if t.SharedMem != "" {
		sb.WriteByte('*')
		sb.WriteString(t.SharedMem)
	} else {
		sb.WriteByte('#')
	}
	for _, m := range t.Members {
		sb.WriteByte(' ')
		if t.Host == m {
			sb.WriteByte('*')
		} else {
			sb.WriteByte('#')
		}
		sb.WriteString(m.Name)
	}
	sb.WriteByte(' ')
	sb.WriteString(t.Lobby.Server.Title.WireName)
	return sb.String()
}

// SharedMemPacket builds the binary shared-mem fan-out payload: one
// length byte, the encoded description, then the raw memory bytes.
func SharedMemPacket(desc []byte, mem []byte) []byte {
	data := make([]byte, 0, 1+len(desc)+len(mem))
	data = append(data, byte(len(desc)))
	data = append(data, desc...)
	data = append(data, mem...)
	return data
}
