package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cindexd/cindexd/internal/messages"
)

// Client talks to a running Server over its Unix socket. Grounded on
// internal/server.Client: an *http.Client whose Transport dials the
// socket directly, talking plain HTTP over it with a fixed
// "http://unix/..." base.
type Client struct {
	http       *http.Client
	socketPath string
}

// NewClient connects to the server listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 30 * time.Second,
		},
		socketPath: socketPath,
	}
}

// Ping checks whether a server is listening and responsive.
func (c *Client) Ping() error {
	resp, err := c.http.Post("http://unix/ping", "application/json", nil)
	if err != nil {
		return fmt.Errorf("pinging %s: %w", c.socketPath, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Status retrieves the running project's current Status.
func (c *Client) Status() (Status, error) {
	var status Status
	resp, err := c.http.Get("http://unix/status")
	if err != nil {
		return status, fmt.Errorf("fetching status: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return status, err
	}
	err = json.NewDecoder(resp.Body).Decode(&status)
	return status, err
}

// Compile sends one compile command to the running project.
func (c *Client) Compile(path string, args []string) error {
	body, err := json.Marshal(messages.CompileMessage{Path: path, Args: args})
	if err != nil {
		return err
	}
	resp, err := c.http.Post("http://unix/compile", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending compile command: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Query sends one query and returns its answer.
func (c *Client) Query(q messages.QueryMessage) (messages.Answer, error) {
	var answer messages.Answer
	body, err := json.Marshal(q)
	if err != nil {
		return answer, err
	}
	resp, err := c.http.Post("http://unix/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return answer, fmt.Errorf("sending query: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return answer, err
	}
	err = json.NewDecoder(resp.Body).Decode(&answer)
	return answer, err
}

// Shutdown asks the running project to stop.
func (c *Client) Shutdown() error {
	resp, err := c.http.Post("http://unix/shutdown", "application/json", nil)
	if err != nil {
		return fmt.Errorf("sending shutdown: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("server error (%s): %s", resp.Status, string(body))
}
