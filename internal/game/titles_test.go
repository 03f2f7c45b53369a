package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTitleTable(t *testing.T) {
	tbl, err := LoadTitleTable()
	require.NoError(t, err)
	assert.Equal(t, 8, tbl.Count())

	// Seven lobby servers: daytonajp rides on daytona's.
	assert.Len(t, tbl.Servers(), 7)
}

func TestIdentify(t *testing.T) {
	tbl, err := LoadTitleTable()
	require.NoError(t, err)

	tests := []struct {
		token string
		code  string
	}{
		{"DAYTONAUSA2001US0001", "daytona"},
		{"DAYTONAUSA2001JP0001", "daytonajp"},
		{"SEGATETRIS1.00JP0001", "tetris"},
		{"GOLFSHIYOUYO2JP00001", "golf"},
		{"AERODANCINGIJP000001", "aeroI"},
		{"HUNDREDSWORDSJP00001", "100swords"},
		{"CULDCEPTIIJP00000001", "culdcept"},
		{"AERODANCINGFJP000001", "aeroF"},
		{"BOGUSTOKEN0000000000", "daytona"},
		{"", "daytona"},
	}
	for _, tc := range tests {
		got := tbl.Identify(tc.token)
		require.NotNil(t, got, tc.token)
		assert.Equal(t, tc.code, got.Code, tc.token)
	}
}

func TestAliasSharesServer(t *testing.T) {
	tbl, err := LoadTitleTable()
	require.NoError(t, err)

	jp := tbl.ByCode("daytonajp")
	us := tbl.ByCode("daytona")
	require.NotNil(t, jp)
	require.NotNil(t, us)

	assert.Equal(t, "daytona", jp.ServerCode())
	assert.Equal(t, us.Port, jp.Port)
	// The JP release still keeps its own handle namespace.
	assert.NotEqual(t, us.Code, jp.Code)
}

func TestHandleRules(t *testing.T) {
	tbl, err := LoadTitleTable()
	require.NoError(t, err)

	golf := tbl.ByCode("golf")
	require.NotNil(t, golf)
	assert.True(t, golf.FullWidth)
	assert.Equal(t, 9, golf.MaxHandleLen)

	daytona := tbl.ByCode("daytona")
	require.NotNil(t, daytona)
	assert.False(t, daytona.FullWidth)
	assert.Equal(t, 19, daytona.MaxHandleLen)
	assert.Equal(t, ".us", daytona.HandleSuffix)
}

func TestPortsAreDistinct(t *testing.T) {
	tbl, err := LoadTitleTable()
	require.NoError(t, err)

	seen := map[int]string{}
	for _, ti := range tbl.Servers() {
		require.NotZero(t, ti.Port, ti.Code)
		prev, dup := seen[ti.Port]
		require.False(t, dup, "port %d shared by %s and %s", ti.Port, prev, ti.Code)
		seen[ti.Port] = ti.Code
	}
}
