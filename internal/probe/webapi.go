package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const defaultWebAPIBase = "https://api.mcsrvstat.us"

func init() {
	Register(NewWebAPIProber(defaultWebAPIBase))
}

// WebAPIProber queries the third-party mcsrvstat.us status API instead of
// the server itself. Useful when the bot host cannot reach the game port.
type WebAPIProber struct {
	base   string
	client *retryablehttp.Client
}

func NewWebAPIProber(base string) *WebAPIProber {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.Logger = nil
	return &WebAPIProber{base: base, client: client}
}

func (p *WebAPIProber) Name() string { return "webapi" }

func (p *WebAPIProber) Probe(ctx context.Context, host string, port int, edition string) (*Status, error) {
	url := fmt.Sprintf("%s/3/%s:%d", p.base, host, port)
	if edition == "bedrock" {
		url = fmt.Sprintf("%s/bedrock/3/%s:%d", p.base, host, port)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query status api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status api returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read status api response: %w", err)
	}

	raw := string(body)
	if !gjson.Get(raw, "online").Bool() {
		return &Status{Online: false, CheckedAt: time.Now().UTC()}, nil
	}

	st := &Status{Online: true, CheckedAt: time.Now().UTC()}

	var motd string
	gjson.Get(raw, "motd.clean").ForEach(func(_, line gjson.Result) bool {
		if motd != "" {
			motd += " "
		}
		motd += line.String()
		return true
	})
	st.MOTD = cleanText(motd)

	st.VersionName = gjson.Get(raw, "version").String()
	st.ProtocolVersion = int(gjson.Get(raw, "protocol.version").Int())
	st.OnlinePlayers = int(gjson.Get(raw, "players.online").Int())
	st.MaxPlayers = int(gjson.Get(raw, "players.max").Int())

	gjson.Get(raw, "players.list").ForEach(func(_, pl gjson.Result) bool {
		id, _ := uuid.Parse(pl.Get("uuid").String())
		st.Players = append(st.Players, Player{Name: pl.Get("name").String(), UUID: id})
		return true
	})

	return st, nil
}
