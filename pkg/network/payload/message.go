// Package payload implements the P2P wire-message framing described in
// spec.md §6 ("Wire framing"): a 2-byte {flags, command} header, a
// varint payload length and the payload itself, with optional LZ4
// compression of the payload. Actual peer discovery, handshake and
// gossip are out of scope; this package only has to frame and
// compress/decompress a message body reliably so the rest of the
// node's wire types (blocks, transactions, headers) have somewhere to
// travel.
package payload

import (
	"bytes"
	stdio "io"

	"github.com/neogo-core/node/pkg/io"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// CommandType names the kind of message a Message carries, mirroring
// the teacher's command-byte-per-message-type protocol.
type CommandType byte

const (
	CmdVersion         CommandType = 0x00
	CmdVerack          CommandType = 0x01
	CmdGetAddr         CommandType = 0x10
	CmdAddr            CommandType = 0x11
	CmdPing            CommandType = 0x18
	CmdPong            CommandType = 0x19
	CmdGetHeaders      CommandType = 0x20
	CmdHeaders         CommandType = 0x21
	CmdGetBlocks       CommandType = 0x24
	CmdMempool         CommandType = 0x25
	CmdInv             CommandType = 0x27
	CmdGetData         CommandType = 0x28
	CmdGetBlockByIndex CommandType = 0x29
	CmdNotFound        CommandType = 0x2a
	CmdTX              CommandType = 0x2b
	CmdBlock           CommandType = 0x2c
	CmdExtensible      CommandType = 0x2e
	CmdReject          CommandType = 0x2f
	CmdFilterLoad      CommandType = 0x30
	CmdFilterAdd       CommandType = 0x31
	CmdFilterClear     CommandType = 0x32
	CmdMerkleBlock     CommandType = 0x38
	CmdAlert           CommandType = 0x40
)

const (
	// flagCompressed marks a message whose payload was LZ4-compressed
	// before framing (spec.md §6 "flags bit 0 = LZ4-compressed").
	flagCompressed byte = 1 << 0

	// minCompressSize is the smallest payload this codec will attempt
	// to compress.
	minCompressSize = 128
	// minCompressGain is the minimum byte reduction compression must
	// achieve to be worth the CPU; below this the codec keeps the
	// payload uncompressed.
	minCompressGain = 64

	// MaxPayloadSize bounds a single message's payload.
	MaxPayloadSize = 16 * 1024 * 1024
)

// ErrPayloadTooLarge is returned when a message's payload exceeds
// MaxPayloadSize, either on encode or on decode.
var ErrPayloadTooLarge = errors.New("payload: message payload exceeds maximum size")

// Message is one framed, optionally-compressed P2P message.
type Message struct {
	Flags   byte
	Command CommandType
	// Payload holds the decompressed message body; callers never see
	// the wire-level compressed bytes directly.
	Payload []byte
}

// NewMessage builds a Message from a command and its decompressed
// payload, with no compression applied yet (compression happens at
// Encode time, once, based on the final payload size).
func NewMessage(cmd CommandType, body []byte) *Message {
	return &Message{Command: cmd, Payload: body}
}

// Encode writes m's wire framing to w: flags byte, command byte,
// varint-length-prefixed payload, compressing the payload first when
// that is profitable.
func (m *Message) Encode(w *io.BinWriter) error {
	if len(m.Payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	flags := byte(0)
	body := m.Payload
	if len(body) >= minCompressSize {
		compressed, err := compress(body)
		if err == nil && len(body)-len(compressed) >= minCompressGain {
			flags |= flagCompressed
			body = compressed
		}
	}

	w.WriteB(flags)
	w.WriteB(byte(m.Command))
	w.WriteVarBytes(body)
	return w.Err
}

// Decode reads a Message's wire framing from r, decompressing the
// payload when the compressed flag is set.
func (m *Message) Decode(r *io.BinReader) error {
	flags := r.ReadB()
	cmd := r.ReadB()
	body := r.ReadVarBytes()
	if r.Err != nil {
		return r.Err
	}
	if len(body) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	m.Flags = flags
	m.Command = CommandType(cmd)
	if flags&flagCompressed != 0 {
		decompressed, err := decompress(body)
		if err != nil {
			return errors.Wrap(err, "payload: lz4 decompress")
		}
		if len(decompressed) > MaxPayloadSize {
			return ErrPayloadTooLarge
		}
		m.Payload = decompressed
		return nil
	}
	m.Payload = body
	return nil
}

// Bytes is a convenience wrapper around Encode for callers that just
// want the framed bytes (e.g. to hand to a net.Conn writer).
func (m *Message) Bytes() ([]byte, error) {
	bw := io.NewBufBinWriter()
	if err := m.Encode(bw.BinWriter); err != nil {
		return nil, err
	}
	return bw.Bytes(), nil
}

// compress LZ4-compresses data using the default block settings, the
// same library the framing format is built around.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress reverses compress.
func decompress(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	out, err := stdio.ReadAll(zr)
	if err != nil && err != stdio.EOF {
		return nil, err
	}
	return out, nil
}
