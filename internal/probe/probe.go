package probe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Player is one entry from the server's online player sample.
type Player struct {
	Name string    `json:"name"`
	UUID uuid.UUID `json:"uuid"`
}

// Status is the outcome of one probe. Online carries the server metadata;
// Offline carries only the check time.
type Status struct {
	Online          bool          `json:"online"`
	MOTD            string        `json:"motd,omitempty"`
	VersionName     string        `json:"version_name,omitempty"`
	ProtocolVersion int           `json:"protocol_version,omitempty"`
	OnlinePlayers   int           `json:"online_players"`
	MaxPlayers      int           `json:"max_players"`
	Players         []Player      `json:"players,omitempty"`
	Latency         time.Duration `json:"latency_ms"`
	CheckedAt       time.Time     `json:"checked_at"`
}

// Prober queries a remote game server.
type Prober interface {
	// Name returns the backend identifier (e.g., "query", "webapi").
	Name() string

	// Probe queries the server. An error means the query could not complete;
	// callers treat that as the server being offline via Check.
	Probe(ctx context.Context, host string, port int, edition string) (*Status, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Prober{}
)

func Register(p Prober) {
	mu.Lock()
	defer mu.Unlock()
	backends[p.Name()] = p
}

func Get(name string) Prober {
	mu.RLock()
	defer mu.RUnlock()
	return backends[name]
}

// Check runs a probe and folds unreachability into an Offline status.
// Ordinary failures (refused, timed out, garbage response) are data here,
// not errors.
func Check(ctx context.Context, p Prober, host string, port int, edition string) *Status {
	st, err := p.Probe(ctx, host, port, edition)
	if err != nil || st == nil {
		return &Status{Online: false, CheckedAt: time.Now().UTC()}
	}
	return st
}

// cleanText strips legacy § formatting codes and trims whitespace.
func cleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	skip := false
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		if r == '§' {
			skip = true
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
