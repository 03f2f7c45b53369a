// Package game holds the static per-title data: tokens, ports, handle
// rules and the default lobby layout every title server starts with.
package game

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed titles.yaml
var titlesYAML []byte

// Title holds static data for one supported game disc.
type Title struct {
	ID           int    `yaml:"id"`
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	WireName     string `yaml:"wire_name"`
	Token        string `yaml:"token"`
	Port         int    `yaml:"port"`
	Icon         string `yaml:"icon"`
	FullWidth    bool   `yaml:"full_width"`
	MaxHandleLen int    `yaml:"max_handle_len"`
	HandleSuffix string `yaml:"handle_suffix"`
	AliasFor     string `yaml:"alias_for,omitempty"`
}

// DefaultLobby is one entry of the lobby layout created on title
// server startup. The same layout is used for every title.
type DefaultLobby struct {
	Name     string
	Capacity int
}

// DefaultLobbies is the persistent lobby set of every title server.
// Clients rely on at least one lobby existing after login.
var DefaultLobbies = []DefaultLobby{
	{"2P_Red", 100},
	{"4P_Yellow", 100},
	{"2P_Blue", 100},
	{"2P_Green", 100},
	{"4P_Purple", 100},
	{"4P_Orange", 100},
}

type titleListFile struct {
	Titles []Title `yaml:"titles"`
}

// TitleTable holds all supported titles indexed by code and by token.
type TitleTable struct {
	ordered []*Title
	byCode  map[string]*Title
	byToken map[string]*Title
}

// LoadTitleTable parses the embedded title list.
func LoadTitleTable() (*TitleTable, error) {
	var f titleListFile
	if err := yaml.Unmarshal(titlesYAML, &f); err != nil {
		return nil, fmt.Errorf("parse title list: %w", err)
	}
	t := &TitleTable{
		byCode:  make(map[string]*Title, len(f.Titles)),
		byToken: make(map[string]*Title, len(f.Titles)),
	}
	for i := range f.Titles {
		ti := &f.Titles[i]
		if ti.MaxHandleLen == 0 {
			ti.MaxHandleLen = 19
		}
		t.ordered = append(t.ordered, ti)
		t.byCode[ti.Code] = ti
		t.byToken[ti.Token] = ti
	}
	for _, ti := range t.ordered {
		if ti.AliasFor == "" {
			continue
		}
		target, ok := t.byCode[ti.AliasFor]
		if !ok {
			return nil, fmt.Errorf("title %s aliases unknown title %s", ti.Code, ti.AliasFor)
		}
		if ti.Port == 0 {
			ti.Port = target.Port
		}
	}
	return t, nil
}

// Identify maps a gate login token to its title. Unknown tokens fall
// back to Daytona, which tolerates being offered to any client.
func (t *TitleTable) Identify(token string) *Title {
	if ti, ok := t.byToken[token]; ok {
		return ti
	}
	return t.byCode["daytona"]
}

// ByCode returns the title with the given code, or nil.
func (t *TitleTable) ByCode(code string) *Title {
	return t.byCode[code]
}

// All returns every title in declaration order, aliases included.
func (t *TitleTable) All() []*Title {
	return t.ordered
}

// Servers returns the titles that run their own lobby server, in
// declaration order. Aliased titles share their target's server.
func (t *TitleTable) Servers() []*Title {
	out := make([]*Title, 0, len(t.ordered))
	for _, ti := range t.ordered {
		if ti.AliasFor == "" {
			out = append(out, ti)
		}
	}
	return out
}

// ServerCode returns the code of the lobby server that hosts the
// title, resolving aliases.
func (ti *Title) ServerCode() string {
	if ti.AliasFor != "" {
		return ti.AliasFor
	}
	return ti.Code
}

// Count returns the number of loaded titles.
func (t *TitleTable) Count() int {
	return len(t.ordered)
}
