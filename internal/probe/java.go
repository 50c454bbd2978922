package probe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Java edition status exchange (Server List Ping): a handshake with next
// state 1, an empty status request, a JSON status response, then a
// ping/pong pair for latency.

const handshakeProtocolVersion = -1 // "don't care", accepted by all modern servers

func pingJava(conn net.Conn, host string, port int) (*Status, error) {
	r := bufio.NewReader(conn)

	handshake := packetBuf(0x00)
	handshake = appendVarInt(handshake, handshakeProtocolVersion)
	handshake = appendString(handshake, host)
	handshake = binary.BigEndian.AppendUint16(handshake, uint16(port))
	handshake = appendVarInt(handshake, 1)
	if err := writePacket(conn, handshake); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}
	if err := writePacket(conn, packetBuf(0x00)); err != nil {
		return nil, fmt.Errorf("write status request: %w", err)
	}

	payload, err := readPacket(r)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	id, payload, err := consumeVarInt(payload)
	if err != nil || id != 0x00 {
		return nil, fmt.Errorf("unexpected status packet id %d", id)
	}
	raw, _, err := consumeString(payload)
	if err != nil {
		return nil, fmt.Errorf("read status json: %w", err)
	}

	st := parseJavaStatus(raw)

	// Ping/pong for latency. Best effort: a server that drops the
	// connection after the status response still counts as online.
	ping := packetBuf(0x01)
	ping = binary.BigEndian.AppendUint64(ping, uint64(time.Now().UnixMilli()))
	sent := time.Now()
	if err := writePacket(conn, ping); err == nil {
		if _, err := readPacket(r); err == nil {
			st.Latency = time.Since(sent)
		}
	}

	return st, nil
}

func parseJavaStatus(raw string) *Status {
	st := &Status{Online: true, CheckedAt: time.Now().UTC()}

	desc := gjson.Get(raw, "description")
	if desc.Type == gjson.String {
		st.MOTD = cleanText(desc.String())
	} else {
		motd := desc.Get("text").String()
		desc.Get("extra").ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String {
				motd += part.String()
			} else {
				motd += part.Get("text").String()
			}
			return true
		})
		st.MOTD = cleanText(motd)
	}

	st.VersionName = cleanText(gjson.Get(raw, "version.name").String())
	st.ProtocolVersion = int(gjson.Get(raw, "version.protocol").Int())
	st.OnlinePlayers = int(gjson.Get(raw, "players.online").Int())
	st.MaxPlayers = int(gjson.Get(raw, "players.max").Int())

	gjson.Get(raw, "players.sample").ForEach(func(_, p gjson.Result) bool {
		id, _ := uuid.Parse(p.Get("id").String())
		st.Players = append(st.Players, Player{Name: p.Get("name").String(), UUID: id})
		return true
	})

	return st
}

func packetBuf(id int) []byte {
	return appendVarInt(nil, id)
}

func writePacket(w io.Writer, payload []byte) error {
	frame := appendVarInt(nil, len(payload))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

const maxPacketLen = 1 << 21 // status responses are small; cap reads

func readPacket(r *bufio.Reader) ([]byte, error) {
	length, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxPacketLen {
		return nil, fmt.Errorf("packet length %d out of range", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Protocol varints are 32-bit two's complement, 7 bits per byte, little
// groups first, high bit = continuation.

func appendVarInt(b []byte, v int) []byte {
	u := uint32(v)
	for {
		if u&^0x7F == 0 {
			return append(b, byte(u))
		}
		b = append(b, byte(u&0x7F|0x80))
		u >>= 7
	}
}

func appendString(b []byte, s string) []byte {
	b = appendVarInt(b, len(s))
	return append(b, s...)
}

func readVarInt(r io.ByteReader) (int, error) {
	var u uint32
	for i := 0; i < 5; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int(int32(u)), nil
		}
	}
	return 0, fmt.Errorf("varint too long")
}

func consumeVarInt(b []byte) (int, []byte, error) {
	var u uint32
	for i := 0; i < 5 && i < len(b); i++ {
		c := b[i]
		u |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int(int32(u)), b[i+1:], nil
		}
	}
	return 0, nil, fmt.Errorf("truncated varint")
}

func consumeString(b []byte) (string, []byte, error) {
	n, rest, err := consumeVarInt(b)
	if err != nil {
		return "", nil, err
	}
	if n < 0 || n > len(rest) {
		return "", nil, fmt.Errorf("string length %d out of range", n)
	}
	return string(rest[:n]), rest[n:], nil
}
