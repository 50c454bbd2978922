package probe

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Bedrock edition status exchange: a RakNet unconnected ping over UDP,
// answered by an unconnected pong carrying a semicolon-separated server ID
// string.

var raknetMagic = [16]byte{
	0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe,
	0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78,
}

const (
	idUnconnectedPing = 0x01
	idUnconnectedPong = 0x1c
)

func pingBedrock(conn net.Conn) (*Status, error) {
	req := make([]byte, 0, 33)
	req = append(req, idUnconnectedPing)
	req = binary.BigEndian.AppendUint64(req, uint64(time.Now().UnixMilli()))
	req = append(req, raknetMagic[:]...)
	req = binary.BigEndian.AppendUint64(req, 0) // client GUID, unused

	sent := time.Now()
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("write ping: %w", err)
	}

	resp := make([]byte, 1500)
	n, err := conn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("read pong: %w", err)
	}
	latency := time.Since(sent)

	// pong: id(1) + time(8) + server GUID(8) + magic(16) + len(2) + server ID string
	if n < 35 || resp[0] != idUnconnectedPong {
		return nil, fmt.Errorf("unexpected pong packet (%d bytes)", n)
	}
	strLen := int(binary.BigEndian.Uint16(resp[33:35]))
	if 35+strLen > n {
		return nil, fmt.Errorf("truncated pong string")
	}

	st := parseBedrockPong(string(resp[35 : 35+strLen]))
	st.Latency = latency
	return st, nil
}

// parseBedrockPong parses the server ID string:
// edition;motd;protocol;version;online;max;guid;sub-motd;gamemode;...
func parseBedrockPong(s string) *Status {
	st := &Status{Online: true, CheckedAt: time.Now().UTC()}
	fields := strings.Split(s, ";")
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	st.MOTD = cleanText(get(1))
	st.ProtocolVersion, _ = strconv.Atoi(get(2))
	st.VersionName = get(3)
	st.OnlinePlayers, _ = strconv.Atoi(get(4))
	st.MaxPlayers, _ = strconv.Atoi(get(5))
	return st
}
