package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestPoolReusesConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	b, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.GetConnection("passthrough:///ledger-b")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestPoolDropsClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("passthrough:///ledger")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := p.GetConnection("passthrough:///ledger")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestJSONCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)

	type msg struct {
		Amount string `json:"amount"`
	}
	raw, err := codec.Marshal(&msg{Amount: "1.00"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1.00"}`, string(raw))

	var out msg
	require.NoError(t, codec.Unmarshal(raw, &out))
	assert.Equal(t, "1.00", out.Amount)
}
