package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInbound(t *testing.T) {
	cases := []struct {
		name        string
		raw         string
		wantAction  string
		wantPayload string
		wantErr     error
	}{
		{name: "bare action", raw: "stay", wantAction: "stay"},
		{name: "object payload", raw: `join,{"gameType":"blackjack"}`, wantAction: "join", wantPayload: `{"gameType":"blackjack"}`},
		{name: "array payload", raw: `bet,[10]`, wantAction: "bet", wantPayload: `[10]`},
		{name: "scalar payload", raw: `bet,10`, wantAction: "bet", wantPayload: `10`},
		{name: "payload keeps later commas", raw: `say,["a","b"]`, wantAction: "say", wantPayload: `["a","b"]`},
		{name: "trailing comma", raw: "stay,", wantAction: "stay"},
		{name: "empty", raw: "", wantErr: ErrEmptyMessage},
		{name: "bad json", raw: "bet,{oops", wantErr: ErrBadPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := ParseInbound(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAction, in.Action)
			assert.Equal(t, tc.wantPayload, string(in.Payload))
		})
	}
}

func TestEncode_Update(t *testing.T) {
	frame, err := Encode(PrefixUpdate, Update{VarType: VarPlayer, Key: "coins", Value: json.RawMessage(`50`), Player: "p1"})
	require.NoError(t, err)
	assert.Equal(t, `update,{"varType":"player","key":"coins","value":50,"player":"p1"}`, frame)
}

func TestEncode_GameUpdateOmitsPlayer(t *testing.T) {
	frame, err := Encode(PrefixUpdate, Update{VarType: VarGame, Key: "round", Value: json.RawMessage(`1`)})
	require.NoError(t, err)
	assert.Equal(t, `update,{"varType":"game","key":"round","value":1}`, frame)
}
