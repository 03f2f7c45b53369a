package world

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iwango/server/internal/protocol"
)

// Lobby is a chat room players gather in before forming teams. The
// default lobbies created at server startup are permanent; lobbies
// created on demand by a client are garbage collected when their last
// member leaves.
type Lobby struct {
	Name         string
	Capacity     int
	Flags        int
	HasSharedMem bool
	SharedMem    string
	Permanent    bool

	Server  *TitleServer
	Members []*Player
	Teams   []*Team

	log *zap.Logger
}

// Full reports whether the lobby is at capacity.
func (l *Lobby) Full() bool {
	return len(l.Members) >= l.Capacity
}

// AddPlayer appends the player, confirms the join to it and announces
// the newcomer's record to everyone else. Capacity is the caller's
// problem; the dispatcher answers a full lobby before getting here.
func (l *Lobby) AddPlayer(p *Player) {
	l.Members = append(l.Members, p)

	p.SendText(protocol.S_OPCODE_JOINED_LOBBY, l.Name+" "+p.Name)

	rec := p.Record()
	for _, m := range l.Members {
		if m == p {
			continue
		}
		m.Send(protocol.S_OPCODE_PLAYER_ENTRY, rec)
	}

	l.Server.Notify.LobbyJoined(l.Server.Title, p.Name, l.Name, l.MemberNames())
}

// RemovePlayer drops the player from the member list, confirms the
// leave and tells the remaining members. A player whose name was
// cleared (login takeover) leaves silently. An emptied ephemeral
// lobby is collected afterwards.
func (l *Lobby) RemovePlayer(p *Player) {
	idx := -1
	for i, m := range l.Members {
		if m == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.log.Warn("player not found in lobby",
			zap.String("player", p.Name), zap.String("lobby", l.Name))
		return
	}
	l.Members = append(l.Members[:idx], l.Members[idx+1:]...)

	p.Send(protocol.S_OPCODE_LEFT_LOBBY, nil)

	if p.Name != "" {
		for _, m := range l.Members {
			m.SendText(protocol.S_OPCODE_PLAYER_LEFT, p.Name)
		}
	}

	if !l.Permanent && len(l.Members) == 0 {
		l.Server.deleteLobby(l)
	}
}

// SendChat broadcasts a lobby chat line.
func (l *Lobby) SendChat(from, message string) {
	for _, m := range l.Members {
		m.SendText(protocol.S_OPCODE_CHAT_LOBBY, from+" "+message)
	}
}

// CreateTeam makes a team hosted by creator and announces it to the
// whole lobby.
func (l *Lobby) CreateTeam(creator *Player, name string, capacity int, kind string) *Team {
	t := &Team{
		Name:     name,
		Capacity: capacity,
		Host:     creator,
		Members:  []*Player{creator},
		Lobby:    l,
		log:      l.log,
	}
	l.Teams = append(l.Teams, t)

	msg := name + " " + creator.Name + " " + strconv.Itoa(capacity) + " 0 " + l.Server.Title.WireName
	for _, m := range l.Members {
		m.SendText(protocol.S_OPCODE_TEAM_CREATED, msg)
	}

	l.Server.Notify.TeamCreated(l.Server.Title, creator.Name, name, l.MemberNames())
	return t
}

// DeleteTeam unlinks the team and tells every lobby member.
func (l *Lobby) DeleteTeam(t *Team) {
	for i, team := range l.Teams {
		if team == t {
			l.Teams = append(l.Teams[:i], l.Teams[i+1:]...)
			break
		}
	}
	for _, m := range l.Members {
		m.SendText(protocol.S_OPCODE_TEAM_DELETED, t.Name)
	}
}

// GetTeam finds a team by name, or nil.
func (l *Lobby) GetTeam(name string) *Team {
	for _, t := range l.Teams {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// MemberNames lists the current member handles.
func (l *Lobby) MemberNames() []string {
	names := make([]string, 0, len(l.Members))
	for _, m := range l.Members {
		names = append(names, m.Name)
	}
	return names
}

// ListEntry renders this lobby's line of the lobby list reply:
// "<name> <members> <cap> <flags> <mem|#> #<game>".
func (l *Lobby) ListEntry() string {
	var sb strings.Builder
	sb.WriteString(l.Name)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(len(l.Members)))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(l.Capacity))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(l.Flags))
	sb.WriteByte(' ')
	if l.HasSharedMem {
		sb.WriteString(l.SharedMem)
	} else {
		sb.WriteByte('#')
	}
	sb.WriteString(" #")
	sb.WriteString(l.Server.Title.WireName)
	return sb.String()
}
