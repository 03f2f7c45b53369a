package handler

import (
	"context"
	"encoding/binary"
	stdnet "net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iwango/server/internal/config"
	"github.com/iwango/server/internal/game"
	"github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/persist"
	"github.com/iwango/server/internal/protocol"
	"github.com/iwango/server/internal/world"
)

type reply struct {
	Opcode  uint16
	Payload []byte
}

type testConn struct {
	ip     string
	sent   [][]byte
	closed bool
}

func (c *testConn) Send(data []byte)    { c.sent = append(c.sent, data) }
func (c *testConn) Close()              { c.closed = true }
func (c *testConn) RemoteIP() stdnet.IP { return stdnet.ParseIP(c.ip) }
func (c *testConn) reset()              { c.sent = nil }

func (c *testConn) replies() []reply {
	out := make([]reply, 0, len(c.sent))
	for _, pkt := range c.sent {
		out = append(out, reply{binary.LittleEndian.Uint16(pkt[:2]), pkt[2:]})
	}
	return out
}

type env struct {
	reg    *Registry
	server *world.TitleServer
	deps   *Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := persist.NewDB(filepath.Join(t.TempDir(), "handler.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, persist.RunMigrations(context.Background(), db))

	titles, err := game.LoadTitleTable()
	require.NoError(t, err)
	title := titles.ByCode("daytona")
	require.NotNil(t, title)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.cfg"))
	require.NoError(t, err)
	cfg.DisableIPCheck = true

	deps := &Deps{
		Config:   cfg,
		ExtraMem: persist.NewExtraMemRepo(db),
		Log:      zap.NewNop(),
	}
	return &env{
		reg:    NewRegistry(deps),
		server: world.NewTitleServer(title, "IWANGO_Server_1", "Welcome", nil, zap.NewNop()),
		deps:   deps,
	}
}

func (e *env) player(name, ip string) (*world.Player, *testConn) {
	conn := &testConn{ip: ip}
	p := world.NewPlayer(conn, e.server, zap.NewNop())
	p.Name = name
	return p, conn
}

func (e *env) dispatch(p *world.Player, opcode uint16, payload string) {
	e.reg.Dispatch(context.Background(), p, &net.LobbyRequest{
		Opcode:  opcode,
		Payload: []byte(payload),
	})
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_LOGIN, "Alice")
	require.Len(t, conn.sent, 1)
	r := conn.replies()
	assert.Equal(t, protocol.S_OPCODE_LOGIN_OK, r[0].Opcode)
	assert.True(t, strings.HasPrefix(string(r[0].Payload), "0100 0102 "))
	assert.Equal(t, "Alice", p.Name)
}

func TestLoginEmptyHandle(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_LOGIN, "")
	r := conn.replies()
	require.Len(t, r, 3)
	assert.Equal(t, protocol.S_OPCODE_NAME_IN_USE, r[0].Opcode)
	assert.Equal(t, "Empty handle", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_BYE, r[1].Opcode)
	assert.Equal(t, protocol.S_OPCODE_DISCONNECT_ACK, r[2].Opcode)
	assert.True(t, conn.closed)
	assert.True(t, p.Disconnected())
}

func TestLoginTakeover(t *testing.T) {
	e := newEnv(t)
	old, oldConn := e.player("Alice", "10.0.0.1")
	p, _ := e.player("", "10.0.0.2")

	e.dispatch(p, protocol.C_OPCODE_LOGIN, "Alice")

	assert.True(t, old.Disconnected())
	assert.Empty(t, old.Name)
	r := oldConn.replies()
	require.NotEmpty(t, r)
	assert.Equal(t, protocol.S_OPCODE_SERVER_DC, r[0].Opcode)
	assert.Equal(t, "Alice", p.Name)
	assert.False(t, p.Disconnected())
}

func TestLoginDuplicateAddressKicked(t *testing.T) {
	e := newEnv(t)
	e.deps.Config.DisableIPCheck = false
	old, _ := e.player("Bob", "10.0.0.1")
	p, _ := e.player("", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_LOGIN, "Alice")

	assert.True(t, old.Disconnected())
	assert.Equal(t, "Alice", p.Name)
}

func TestLoginDuplicateAddressAllowedWhenDisabled(t *testing.T) {
	e := newEnv(t)
	old, _ := e.player("Bob", "10.0.0.1")
	p, _ := e.player("", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_LOGIN, "Alice")

	assert.False(t, old.Disconnected())
	assert.Equal(t, "Alice", p.Name)
}

func TestLogin2(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_LOGIN2, "keyuser :dummy 2 consoleid 1 0")
	r := conn.replies()
	require.Len(t, r, 3)
	assert.Equal(t, protocol.S_OPCODE_LOBBY_INFO, r[0].Opcode)
	assert.Equal(t, "LOB 999 999 AAA AAA", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_MOTD, r[1].Opcode)
	assert.Equal(t, "Welcome", string(r[1].Payload))
	assert.Equal(t, protocol.S_OPCODE_EXTRAMEM_READY, r[2].Opcode)
	assert.Equal(t, "keyuser", p.User)
}

func TestEnterLobbyExisting(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	r := conn.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_JOINED_LOBBY, r[0].Opcode)
	assert.Equal(t, "2P_Red Alice", string(r[0].Payload))
	require.NotNil(t, p.Lobby)
	assert.Equal(t, "2P_Red", p.Lobby.Name)
}

func TestEnterLobbyTrailingTypeToken(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100 1")
	r := conn.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_JOINED_LOBBY, r[0].Opcode)
	require.NotNil(t, p.Lobby)
	assert.Equal(t, "2P_Red", p.Lobby.Name)
}

func TestEnterLobbyCreates(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_ENTR_LOBBY, "Private 4")
	r := conn.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_LOBBY_CREATED, r[0].Opcode)
	assert.Equal(t, "Private", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_JOINED_LOBBY, r[1].Opcode)
	require.NotNil(t, e.server.GetLobby("Private"))
	assert.Equal(t, 4, e.server.GetLobby("Private").Capacity)
}

func TestEnterLobbyFull(t *testing.T) {
	e := newEnv(t)
	a, _ := e.player("Alice", "10.0.0.1")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "Tiny 1")

	b, conn := e.player("Bob", "10.0.0.2")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "Tiny 1")
	r := conn.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_LOBBY_FULL, r[0].Opcode)
	assert.Nil(t, b.Lobby)
}

func TestEnterLobbyBadArgCount(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_ENTR_LOBBY, "JustOneArg")
	assert.Empty(t, conn.sent)
	assert.Nil(t, p.Lobby)
}

func TestLeaveLobby(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")
	e.dispatch(p, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	conn.reset()

	e.dispatch(p, protocol.C_OPCODE_LEAVE_LOBBY, "")
	r := conn.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_LEFT_LOBBY, r[0].Opcode)
	assert.Nil(t, p.Lobby)
}

func TestGetLobbies(t *testing.T) {
	e := newEnv(t)
	p, conn := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_GET_LOBBIES, "")
	r := conn.replies()
	require.Len(t, r, len(game.DefaultLobbies)+1)
	assert.Equal(t, protocol.S_OPCODE_LOBBY_ENTRY, r[0].Opcode)
	assert.Equal(t, "2P_Red 0 100 0 # #Daytona", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_LOBBY_END, r[len(r)-1].Opcode)
}

func TestRefreshPlayersAll(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, _ := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_REFRESH_PLAYERS, "")
	r := connA.replies()
	require.Len(t, r, 3)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_ENTRY, r[0].Opcode)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_ENTRY, r[1].Opcode)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_END, r[2].Opcode)
}

func TestRefreshPlayersNamed(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	e.player("Bob", "10.0.0.2")

	e.dispatch(a, protocol.C_OPCODE_REFRESH_PLAYERS, "Bob")
	r := connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_ENTRY, r[0].Opcode)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_END, r[1].Opcode)

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_REFRESH_PLAYERS, "Nobody")
	r = connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_PLAYER_END, r[0].Opcode)
}

func TestRefreshUsers(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, _ := e.player("Bob", "10.0.0.2")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_REFRESH_USERS, "2P_Red")
	r := connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_USER_ENTRY, r[0].Opcode)
	assert.Equal(t, protocol.S_OPCODE_USER_END, r[1].Opcode)
}

func TestChatLobby(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, connB := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	connA.reset()
	connB.reset()

	e.dispatch(a, protocol.C_OPCODE_CHAT_LOBBY, "Alice hello there")
	for _, conn := range []*testConn{connA, connB} {
		r := conn.replies()
		require.Len(t, r, 1)
		assert.Equal(t, protocol.S_OPCODE_CHAT_LOBBY, r[0].Opcode)
		assert.Equal(t, "Alice hello there", string(r[0].Payload))
	}
}

func TestChatTeam(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, connB := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	connA.reset()
	connB.reset()

	e.dispatch(a, protocol.C_OPCODE_CHAT_TEAM, "gl hf")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_CHAT_TEAM, r[0].Opcode)
	assert.Equal(t, "Alice gl hf", string(r[0].Payload))
	assert.Empty(t, connB.sent)
}

func TestCTCPMessage(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	_, connB := e.player("Bob", "10.0.0.2")

	e.dispatch(a, protocol.C_OPCODE_SEND_CTCPMSG, "Bob Alice see you at the track")
	assert.Empty(t, connA.sent)
	r := connB.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_CTCPMSG, r[0].Opcode)
	assert.Equal(t, "Alice see you at the track", string(r[0].Payload))
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, _ := e.player("Bob", "10.0.0.2")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_SEARCH, "Bob")
	r := connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_SEARCH_RESULT, r[0].Opcode)
	assert.Equal(t, "Bob !IWANGO_Server_1 !2P_Red", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_SEARCH_END, r[1].Opcode)
	assert.Equal(t, "1", string(r[1].Payload))
}

func TestSearchMissesStillEnd(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_SEARCH, "Nobody")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_SEARCH_END, r[0].Opcode)
}

func TestCreateTeamOutsideLobbyDisconnects(t *testing.T) {
	e := newEnv(t)
	p, _ := e.player("Alice", "10.0.0.1")

	e.dispatch(p, protocol.C_OPCODE_CREATE_TEAM, "4 Loners 0")
	assert.True(t, p.Disconnected())
}

func TestGetTeams(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_GET_TEAMS, "")
	r := connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_TEAM_ENTRY, r[0].Opcode)
	assert.Equal(t, "Racers 1 2 0 # *Alice Daytona", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_TEAM_END, r[1].Opcode)
}

func TestJoinAndLeaveTeam(t *testing.T) {
	e := newEnv(t)
	a, _ := e.player("Alice", "10.0.0.1")
	b, _ := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")

	e.dispatch(b, protocol.C_OPCODE_JOIN_TEAM, "Racers")
	require.NotNil(t, b.Team)
	assert.Equal(t, "Racers", b.Team.Name)

	e.dispatch(b, protocol.C_OPCODE_LEAVE_TEAM, "")
	assert.Nil(t, b.Team)
	require.NotNil(t, a.Team)
	assert.Len(t, a.Team.Members, 1)
}

func TestSharedMemTeam(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_SHAREDMEM_TEAM, "Racers COURSE3")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_TEAM_SHAREDMEM, r[0].Opcode)
	assert.Equal(t, "Racers COURSE3", string(r[0].Payload))
	assert.Equal(t, "COURSE3", a.Team.SharedMem)
}

func TestSharedMemPlayerBinary(t *testing.T) {
	e := newEnv(t)
	a, _ := e.player("Alice", "10.0.0.1")

	mem := make([]byte, world.SharedMemSize)
	mem[0] = 0xFF
	e.dispatch(a, protocol.C_OPCODE_SHAREDMEM_PLAYER, string(mem))
	assert.Equal(t, byte(0xFF), a.SharedMem[0])
}

func TestLaunchRequest(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, connB := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	e.dispatch(b, protocol.C_OPCODE_JOIN_TEAM, "Racers")
	connA.reset()
	connB.reset()

	e.dispatch(b, protocol.C_OPCODE_LAUNCH_REQUEST, "")
	for _, conn := range []*testConn{connA, connB} {
		r := conn.replies()
		require.Len(t, r, 1)
		assert.Equal(t, protocol.S_OPCODE_GAME_SERVER, r[0].Opcode)
		assert.Equal(t, "10.0.0.1 9501", string(r[0].Payload))
	}
}

func TestLaunchRequestConfiguredPort(t *testing.T) {
	e := newEnv(t)
	e.deps.Config = mustConfig(t, "daytonaLaunchPort = 12000\n")
	e.deps.Config.DisableIPCheck = true
	a, connA := e.player("Alice", "10.0.0.1")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_LAUNCH_REQUEST, "")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, "10.0.0.1 12000", string(r[0].Payload))
}

func TestLaunchGame(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")
	b, _ := e.player("Bob", "10.0.0.2")
	e.dispatch(a, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(b, protocol.C_OPCODE_ENTR_LOBBY, "2P_Red 100")
	e.dispatch(a, protocol.C_OPCODE_CREATE_TEAM, "2 Racers 0")
	e.dispatch(b, protocol.C_OPCODE_JOIN_TEAM, "Racers")
	connA.reset()

	e.dispatch(a, protocol.C_OPCODE_LAUNCH_GAME, "")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_LAUNCH_GAME, r[0].Opcode)
	assert.Equal(t, "2 *Alice 10.0.0.1 Bob 10.0.0.2", string(r[0].Payload))
}

func TestLaunchOutsideTeamIgnored(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_LAUNCH_REQUEST, "")
	e.dispatch(a, protocol.C_OPCODE_LAUNCH_GAME, "")
	assert.Empty(t, connA.sent)
	assert.False(t, a.Disconnected())
}

func TestGetExtraMemStockBlob(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_GET_EXTRAMEM, "Alice 0 28")
	r := connA.replies()
	require.Len(t, r, 3)
	assert.Equal(t, protocol.S_OPCODE_EXTRAMEM_BEGIN, r[0].Opcode)
	assert.Equal(t, protocol.S_OPCODE_EXTRAMEM_DATA, r[1].Opcode)
	require.Len(t, r[1].Payload, 2+28)
	assert.Equal(t, byte(28), r[1].Payload[0])
	assert.Equal(t, byte(0), r[1].Payload[1])
	assert.Equal(t, "REGATETRIS 1.00", string(r[1].Payload[2:17]))
	assert.Equal(t, protocol.S_OPCODE_EXTRAMEM_END, r[2].Opcode)
}

func TestGetExtraMemBadArgsDisconnects(t *testing.T) {
	e := newEnv(t)
	a, _ := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_GET_EXTRAMEM, "Alice 0")
	assert.True(t, a.Disconnected())
}

func TestExtraMemUploadRoundTrip(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Uploader", "10.0.0.1")

	start := []byte{0x00, 0x00, 0x08, 0x00}
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_1, string(start))
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_2, "GOLFDATA")
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_3, "")
	r := connA.replies()
	require.Len(t, r, 3)
	for _, rep := range r {
		assert.Equal(t, protocol.S_OPCODE_EXTRAMEM_ACK, rep.Opcode)
	}
	assert.False(t, a.Xfer.Active)

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_GET_EXTRAMEM, "Uploader 0 8")
	r = connA.replies()
	require.Len(t, r, 3)
	assert.Equal(t, "GOLFDATA", string(r[1].Payload[2:]))
}

func TestExtraMemStoredUnderKeyFileUser(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Handle1", "10.0.0.1")
	a.User = "keyuser"

	start := []byte{0x00, 0x00, 0x08, 0x00}
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_1, string(start))
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_2, "SAVEDATA")
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_3, "")

	blob, err := e.deps.ExtraMem.Get(context.Background(), e.server.Title.ID, "keyuser")
	require.NoError(t, err)
	assert.Equal(t, []byte("SAVEDATA"), blob)

	// A read naming the handle resolves to the owner's user.
	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_GET_EXTRAMEM, "Handle1 0 8")
	r := connA.replies()
	require.Len(t, r, 3)
	assert.Equal(t, "SAVEDATA", string(r[1].Payload[2:]))
}

func TestExtraMemTransferClampedToDeclaredLength(t *testing.T) {
	e := newEnv(t)
	a, _ := e.player("Uploader", "10.0.0.1")

	start := []byte{0x00, 0x00, 0x04, 0x00}
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_1, string(start))
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_2, "ABCDEFGH")
	e.dispatch(a, protocol.C_OPCODE_REGIST_EXTRAMEM_3, "")

	blob, err := e.deps.ExtraMem.Get(context.Background(), e.server.Title.ID, "Uploader")
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), blob)
}

func TestGamesAndLicense(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_GET_GAMES, "")
	r := connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_GAME_ENTRY, r[0].Opcode)
	assert.Equal(t, "1 Daytona", string(r[0].Payload))
	assert.Equal(t, protocol.S_OPCODE_GAME_END, r[1].Opcode)

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_SELECT_GAME, "Daytona")
	r = connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_GAME_SELECTED, r[0].Opcode)
	assert.Equal(t, "Alice Daytona", string(r[0].Payload))

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_GET_LICENSE, "")
	r = connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_LICENSE, r[0].Opcode)
	assert.Equal(t, "ABCDEFGHI", string(r[0].Payload))
}

func TestPingDisconnectReconnect(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, protocol.C_OPCODE_PING, "")
	r := connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_PONG, r[0].Opcode)

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_RECONNECT, "")
	r = connA.replies()
	require.Len(t, r, 1)
	assert.Equal(t, protocol.S_OPCODE_RECONNECT_OK, r[0].Opcode)

	connA.reset()
	e.dispatch(a, protocol.C_OPCODE_DISCONNECT, "")
	r = connA.replies()
	require.Len(t, r, 2)
	assert.Equal(t, protocol.S_OPCODE_BYE, r[0].Opcode)
	assert.Equal(t, protocol.S_OPCODE_DISCONNECT_ACK, r[1].Opcode)
	assert.True(t, a.Disconnected())
}

func TestUnknownOpcodeIgnored(t *testing.T) {
	e := newEnv(t)
	a, connA := e.player("Alice", "10.0.0.1")

	e.dispatch(a, 0x7F, "whatever")
	assert.Empty(t, connA.sent)
	assert.False(t, a.Disconnected())
}

func mustConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iwango.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}
