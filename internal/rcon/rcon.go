package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/gorcon/rcon"
)

var (
	ErrInvalidUsername = errors.New("invalid minecraft username")
	ErrCommandFailed   = errors.New("rcon command failed")
)

var usernameRe = regexp.MustCompile(`^\w{1,16}$`)

// Executor sends admin commands to a game server.
type Executor interface {
	Exec(ctx context.Context, host string, port int, password, command string) (string, error)
}

// Client is the Source-RCON executor used for whitelist management.
type Client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{timeout: timeout}
}

func (c *Client) Exec(ctx context.Context, host string, port int, password, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	conn, err := rcon.Dial(net.JoinHostPort(host, strconv.Itoa(port)), password,
		rcon.SetDialTimeout(c.timeout), rcon.SetDeadline(c.timeout))
	if err != nil {
		return "", fmt.Errorf("%w: connect: %v", ErrCommandFailed, err)
	}
	defer conn.Close()

	resp, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	return resp, nil
}

// WhitelistCommand builds a whitelist add/remove command after validating the
// username, which otherwise flows straight into the server console.
func WhitelistCommand(action, username string) (string, error) {
	if action != "add" && action != "remove" {
		return "", fmt.Errorf("unknown whitelist action %q", action)
	}
	if !usernameRe.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return fmt.Sprintf("whitelist %s %s", action, username), nil
}
