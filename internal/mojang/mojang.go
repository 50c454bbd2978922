package mojang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.mojang.com"

var ErrProfileNotFound = errors.New("minecraft profile not found")

// Profile is a Mojang account lookup result.
type Profile struct {
	Name string
	ID   uuid.UUID
}

// Client looks up Minecraft profiles by username.
type Client struct {
	base   string
	client *retryablehttp.Client
}

func NewClient() *Client {
	return NewClientWithBase(defaultBaseURL)
}

func NewClientWithBase(base string) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.Logger = nil
	return &Client{base: base, client: client}
}

// Lookup resolves a username to its profile, or ErrProfileNotFound.
func (c *Client) Lookup(ctx context.Context, username string) (*Profile, error) {
	url := fmt.Sprintf("%s/users/profiles/minecraft/%s", c.base, username)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query mojang: %w", err)
	}
	defer resp.Body.Close()

	// Mojang answers unknown names with 404 (older API versions used 204).
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, ErrProfileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mojang returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read mojang response: %w", err)
	}
	raw := string(body)
	if gjson.Get(raw, "error").Exists() {
		return nil, ErrProfileNotFound
	}

	id, err := uuid.Parse(gjson.Get(raw, "id").String())
	if err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	return &Profile{Name: gjson.Get(raw, "name").String(), ID: id}, nil
}

// SkinURL returns the crafatar skin URL for a profile.
func (p *Profile) SkinURL() string {
	return fmt.Sprintf("https://crafatar.com/skins/%s", p.ID)
}

// BodyRenderURL returns a rendered body image URL for a profile.
func (p *Profile) BodyRenderURL() string {
	return fmt.Sprintf("https://crafatar.com/renders/body/%s", p.ID)
}
