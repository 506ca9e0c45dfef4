// Package platformtest provides a scripted connector double for platform
// package tests.
package platformtest

import (
	"context"
	"sync"

	"github.com/schedulehq/go-connect/core"
)

type GetCall struct {
	Path  string
	Query map[string]string
}

type PostCall struct {
	Path string
	Body map[string]any
}

// Connector records calls and replays scripted payloads.
type Connector struct {
	mu sync.Mutex

	GetPayload  map[string]any
	GetErr      error
	PostPayload map[string]any
	PostErr     error
	URL         string
	URLErr      error
	Pending     core.PendingOAuthData
	PendingErr  error

	Gets     []GetCall
	Posts    []PostCall
	Pendings []string
}

func (c *Connector) ConnectURL(_ context.Context, _ core.ConnectURLRequest) (string, error) {
	return c.URL, c.URLErr
}

func (c *Connector) PendingOAuthData(_ context.Context, token string) (core.PendingOAuthData, error) {
	c.mu.Lock()
	c.Pendings = append(c.Pendings, token)
	c.mu.Unlock()
	return c.Pending, c.PendingErr
}

func (c *Connector) Get(_ context.Context, path string, query map[string]string) (map[string]any, error) {
	c.mu.Lock()
	c.Gets = append(c.Gets, GetCall{Path: path, Query: query})
	c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	return c.GetPayload, nil
}

func (c *Connector) Post(_ context.Context, path string, body map[string]any) (map[string]any, error) {
	c.mu.Lock()
	c.Posts = append(c.Posts, PostCall{Path: path, Body: body})
	c.mu.Unlock()
	if c.PostErr != nil {
		return nil, c.PostErr
	}
	if c.PostPayload != nil {
		return c.PostPayload, nil
	}
	return map[string]any{"success": true}, nil
}

var _ core.ConnectorClient = (*Connector)(nil)
