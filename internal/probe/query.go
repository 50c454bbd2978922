package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

func init() {
	Register(&QueryProber{})
}

// QueryProber talks to the server directly: Server List Ping over TCP for
// Java, RakNet unconnected ping over UDP for Bedrock.
type QueryProber struct{}

func (p *QueryProber) Name() string { return "query" }

func (p *QueryProber) Probe(ctx context.Context, host string, port int, edition string) (*Status, error) {
	network := "tcp"
	if edition == "bedrock" {
		network = "udp"
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	if edition == "bedrock" {
		return pingBedrock(conn)
	}
	return pingJava(conn, host, port)
}
