package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileShape struct {
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
}

func requireEmail(p *profileShape) error {
	if p.Email == "" {
		return errors.New("missing email")
	}
	return nil
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"ok", `{"email":"a@b.c","balance":10}`, 0},
		{"connection", `{"error":"Connection failed","message":"dial tcp: timeout"}`, KindConnection},
		{"backend", `{"error":"User not found"}`, KindBackend},
		{"backend object error", `{"error":{"message":"quota"}}`, KindBackend},
		{"wrong shape", `[1,2,3]`, KindParse},
		{"failed check", `{"balance":10}`, KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode[profileShape]("getProfile", json.RawMessage(tt.raw), requireEmail)
			if tt.kind == 0 {
				require.NoError(t, err)
				assert.Equal(t, "a@b.c", v.Email)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestDecode_BackendMessageVerbatim(t *testing.T) {
	_, err := Decode[profileShape]("placeOrder", json.RawMessage(`{"error":"Số dư không đủ"}`), nil)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "Số dư không đủ", ge.Message)
	assert.True(t, IsBackend(err))
}

func TestCheckSuccess(t *testing.T) {
	assert.NoError(t, CheckSuccess("deposit", json.RawMessage(`{"success":true,"newBalance":5}`)))

	err := CheckSuccess("deleteTransaction", json.RawMessage(`{"success":false,"message":"not found"}`))
	assert.True(t, IsBackend(err))
	assert.Contains(t, err.Error(), "not found")

	assert.True(t, IsParse(CheckSuccess("deposit", json.RawMessage(`{"ok":1}`))))
	assert.True(t, IsConnection(CheckSuccess("deposit", failureBody("boom"))))
}

func TestKindOf_NonGatewayError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", Kind(0).String())
}
