package world

import (
	"go.uber.org/zap"

	"github.com/iwango/server/internal/game"
)

// Notifier receives domain events worth surfacing outside the
// service. Implementations must not block the caller.
type Notifier interface {
	LobbyJoined(title *game.Title, player, lobby string, members []string)
	TeamCreated(title *game.Title, player, team string, members []string)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) LobbyJoined(*game.Title, string, string, []string) {}
func (NopNotifier) TeamCreated(*game.Title, string, string, []string) {}

// TitleServer is the per-title singleton owning that title's players
// and lobbies. One exists per lobby listening port.
type TitleServer struct {
	Title *game.Title
	Name  string
	MOTD  string

	Players []*Player
	lobbies []*Lobby

	Notify Notifier
	log    *zap.Logger
}

func NewTitleServer(title *game.Title, name, motd string, notify Notifier, log *zap.Logger) *TitleServer {
	if name == "" {
		name = "IWANGO_Server_1"
	}
	if notify == nil {
		notify = NopNotifier{}
	}
	s := &TitleServer{
		Title:  title,
		Name:   name,
		MOTD:   motd,
		Notify: notify,
		log:    log.With(zap.String("game", title.Code)),
	}
	for _, dl := range game.DefaultLobbies {
		l := s.CreateLobby(dl.Name, dl.Capacity)
		if l != nil {
			l.Permanent = true
		}
	}
	return s
}

// CreateLobby adds a lobby unless the name is taken or the capacity
// is zero. Lobbies created this way are ephemeral until marked
// permanent.
func (s *TitleServer) CreateLobby(name string, capacity int) *Lobby {
	if s.GetLobby(name) != nil || capacity <= 0 {
		return nil
	}
	l := &Lobby{
		Name:     name,
		Capacity: capacity,
		Server:   s,
		log:      s.log,
	}
	s.lobbies = append(s.lobbies, l)
	return l
}

// GetLobby finds a lobby by name, or nil.
func (s *TitleServer) GetLobby(name string) *Lobby {
	for _, l := range s.lobbies {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Lobbies returns the live lobby list in creation order.
func (s *TitleServer) Lobbies() []*Lobby {
	return s.lobbies
}

func (s *TitleServer) deleteLobby(l *Lobby) {
	for i, el := range s.lobbies {
		if el == l {
			s.lobbies = append(s.lobbies[:i], s.lobbies[i+1:]...)
			return
		}
	}
}

// GetPlayer finds a player by handle, skipping except. Players whose
// name was cleared never match.
func (s *TitleServer) GetPlayer(name string, except *Player) *Player {
	if name == "" {
		return nil
	}
	for _, p := range s.Players {
		if p != except && p.Name == name {
			return p
		}
	}
	return nil
}

// FindByIP returns another player connected from the same address, or
// nil. Addresses were WAN-unique in the dial-up era the protocol
// comes from.
func (s *TitleServer) FindByIP(me *Player) *Player {
	myIP := me.IP()
	if myIP == nil {
		return nil
	}
	for _, p := range s.Players {
		if p != me && p.IP() != nil && p.IP().Equal(myIP) {
			return p
		}
	}
	return nil
}

// AddPlayer registers a live connection with this title.
func (s *TitleServer) AddPlayer(p *Player) {
	s.Players = append(s.Players, p)
}

// RemovePlayer drops the player from the title's roster.
func (s *TitleServer) RemovePlayer(p *Player) {
	for i, el := range s.Players {
		if el == p {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return
		}
	}
}

// Registry maps title codes to their running servers.
type Registry struct {
	servers map[string]*TitleServer
	ordered []*TitleServer
}

func NewRegistry() *Registry {
	return &Registry{servers: make(map[string]*TitleServer)}
}

// Add registers a title server under its title code.
func (r *Registry) Add(s *TitleServer) {
	r.servers[s.Title.Code] = s
	r.ordered = append(r.ordered, s)
}

// ForTitle resolves the server hosting a title, following aliases.
func (r *Registry) ForTitle(t *game.Title) *TitleServer {
	if t == nil {
		return nil
	}
	return r.servers[t.ServerCode()]
}

// ByCode returns the server whose title has the given code, or nil.
func (r *Registry) ByCode(code string) *TitleServer {
	return r.servers[code]
}

// All returns every registered server in registration order.
func (r *Registry) All() []*TitleServer {
	return r.ordered
}
