package payload

import (
	"bytes"
	"testing"

	"github.com/neogo-core/node/pkg/io"
	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeSmallUncompressed(t *testing.T) {
	m := NewMessage(CmdPing, []byte{1, 2, 3, 4})

	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(io.NewBinWriterFromIO(buf)))

	md := &Message{}
	require.NoError(t, md.Decode(io.NewBinReaderFromIO(buf)))
	require.Equal(t, byte(0), md.Flags)
	require.Equal(t, CmdPing, md.Command)
	require.Equal(t, m.Payload, md.Payload)
}

func TestMessageCompressesLargeRepetitivePayload(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 4096)
	m := NewMessage(CmdBlock, body)

	raw, err := m.Bytes()
	require.NoError(t, err)
	require.Less(t, len(raw), len(body))

	md := &Message{}
	require.NoError(t, md.Decode(io.NewBinReaderFromIO(bytes.NewReader(raw))))
	require.Equal(t, flagCompressed, md.Flags&flagCompressed)
	require.Equal(t, body, md.Payload)
}

func TestMessageSkipsCompressionForIncompressibleSmallPayload(t *testing.T) {
	body := []byte("short payload below the compression threshold")
	m := NewMessage(CmdVersion, body)

	raw, err := m.Bytes()
	require.NoError(t, err)

	md := &Message{}
	require.NoError(t, md.Decode(io.NewBinReaderFromIO(bytes.NewReader(raw))))
	require.Equal(t, byte(0), md.Flags)
	require.Equal(t, body, md.Payload)
}

func TestMessageRejectsOversizedPayload(t *testing.T) {
	m := &Message{Command: CmdBlock, Payload: make([]byte, MaxPayloadSize+1)}
	_, err := m.Bytes()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}
