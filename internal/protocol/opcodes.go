// Package protocol defines the IWANGO wire opcodes shared by the gate and
// lobby servers. Client opcodes come in over the wire; server opcodes go out.
package protocol

// Lobby client opcodes.
const (
	C_OPCODE_LOGIN             uint16 = 0x01
	C_OPCODE_LOGIN2            uint16 = 0x02
	C_OPCODE_SEND_LOG          uint16 = 0x03
	C_OPCODE_ENTR_LOBBY        uint16 = 0x04
	C_OPCODE_DISCONNECT        uint16 = 0x05
	C_OPCODE_GET_LOBBIES       uint16 = 0x07
	C_OPCODE_GET_GAMES         uint16 = 0x08
	C_OPCODE_SELECT_GAME       uint16 = 0x09
	C_OPCODE_PING              uint16 = 0x0A
	C_OPCODE_SEARCH            uint16 = 0x0B
	C_OPCODE_GET_LICENSE       uint16 = 0x0C
	C_OPCODE_RECONNECT         uint16 = 0x0D
	C_OPCODE_GET_TEAMS         uint16 = 0x0F
	C_OPCODE_REFRESH_PLAYERS   uint16 = 0x10
	C_OPCODE_CHAT_LOBBY        uint16 = 0x11
	C_OPCODE_SHAREDMEM_PLAYER  uint16 = 0x1B
	C_OPCODE_SHAREDMEM_TEAM    uint16 = 0x20
	C_OPCODE_LEAVE_TEAM        uint16 = 0x21
	C_OPCODE_LAUNCH_REQUEST    uint16 = 0x22
	C_OPCODE_CHAT_TEAM         uint16 = 0x23
	C_OPCODE_CREATE_TEAM       uint16 = 0x24
	C_OPCODE_JOIN_TEAM         uint16 = 0x25
	C_OPCODE_SEND_CTCPMSG      uint16 = 0x26
	C_OPCODE_GET_EXTRAMEM      uint16 = 0x29
	C_OPCODE_REGIST_EXTRAMEM_1 uint16 = 0x2A // start: sets the transfer cursor
	C_OPCODE_REGIST_EXTRAMEM_2 uint16 = 0x2B // transfer: raw chunk at the cursor
	C_OPCODE_REGIST_EXTRAMEM_3 uint16 = 0x2C // end: clears the cursor
	C_OPCODE_LEAVE_LOBBY       uint16 = 0x3C
	C_OPCODE_LAUNCH_GAME       uint16 = 0x65
	C_OPCODE_REFRESH_USERS     uint16 = 0x67
)

// Lobby server opcodes.
const (
	S_OPCODE_PONG           uint16 = 0x00
	S_OPCODE_NAME_IN_USE    uint16 = 0x03
	S_OPCODE_LOBBY_FULL     uint16 = 0x05
	S_OPCODE_SEARCH_RESULT  uint16 = 0x07
	S_OPCODE_MOTD           uint16 = 0x0A
	S_OPCODE_LOBBY_INFO     uint16 = 0x0C
	S_OPCODE_LOGIN_OK       uint16 = 0x11
	S_OPCODE_JOINED_LOBBY   uint16 = 0x13
	S_OPCODE_DISCONNECT_ACK uint16 = 0x16
	S_OPCODE_SERVER_DC      uint16 = 0x17
	S_OPCODE_LOBBY_ENTRY    uint16 = 0x18
	S_OPCODE_LOBBY_END      uint16 = 0x19
	S_OPCODE_GAME_ENTRY     uint16 = 0x1B
	S_OPCODE_GAME_END       uint16 = 0x1C
	S_OPCODE_GAME_SELECTED  uint16 = 0x1D
	S_OPCODE_RECONNECT_OK   uint16 = 0x1F
	S_OPCODE_LICENSE        uint16 = 0x22
	S_OPCODE_TEAM_CREATED   uint16 = 0x28
	S_OPCODE_TEAM_JOINED    uint16 = 0x29
	S_OPCODE_LOBBY_CREATED  uint16 = 0x2A
	S_OPCODE_PLAYER_LEFT    uint16 = 0x2C
	S_OPCODE_CHAT_LOBBY     uint16 = 0x2D
	S_OPCODE_CTCPMSG        uint16 = 0x2E
	S_OPCODE_PLAYER_ENTRY   uint16 = 0x30
	S_OPCODE_PLAYER_END     uint16 = 0x31
	S_OPCODE_TEAM_ENTRY     uint16 = 0x32
	S_OPCODE_TEAM_END       uint16 = 0x33
	S_OPCODE_TEAM_SHAREDMEM uint16 = 0x34
	S_OPCODE_TEAM_DELETED   uint16 = 0x3A
	S_OPCODE_TEAM_LEFT      uint16 = 0x3B
	S_OPCODE_GAME_SERVER    uint16 = 0x3D
	S_OPCODE_LAUNCH_GAME    uint16 = 0x3E
	S_OPCODE_SHAREDMEM      uint16 = 0x42
	S_OPCODE_CHAT_TEAM      uint16 = 0x43
	S_OPCODE_EXTRAMEM_ACK   uint16 = 0x4F
	S_OPCODE_EXTRAMEM_BEGIN uint16 = 0x50
	S_OPCODE_EXTRAMEM_DATA  uint16 = 0x51
	S_OPCODE_EXTRAMEM_END   uint16 = 0x52
	S_OPCODE_SEARCH_END     uint16 = 0xC9
	S_OPCODE_USER_END       uint16 = 0xD9
	S_OPCODE_USER_ENTRY     uint16 = 0xDA
	S_OPCODE_EXTRAMEM_READY uint16 = 0xE1
	S_OPCODE_BYE            uint16 = 0xE3
	S_OPCODE_LEFT_LOBBY     uint16 = 0xCB
)

// Gate server opcodes. Gate requests carry no opcode, only replies do.
const (
	G_OPCODE_FILTER_BEGIN    uint16 = 0x3E8
	G_OPCODE_FILTER_SERVER   uint16 = 0x3E9
	G_OPCODE_FILTER_END      uint16 = 0x3EA
	G_OPCODE_HANDLE_LIST     uint16 = 0x3F2
	G_OPCODE_HANDLE_ADDED    uint16 = 0x3F3
	G_OPCODE_HANDLE_REPLACED uint16 = 0x3F4
	G_OPCODE_HANDLE_DELETED  uint16 = 0x3F5
	G_OPCODE_ERROR1          uint16 = 0x3FC
	G_OPCODE_NAME_IN_USE1    uint16 = 0x3FD
	G_OPCODE_NAME_IN_USE2    uint16 = 0x3FE // observed on the wire, never sent by us
	G_OPCODE_ERROR2          uint16 = 0x3FF // meaning unknown
)
