package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	endpoints []domain.Endpoint
	err       error
	token     *signal.Signal
}

func (s *stubRegistry) Endpoints(ctx context.Context) ([]domain.Endpoint, error) {
	return s.endpoints, s.err
}

func (s *stubRegistry) ChangeToken(ctx context.Context) (*signal.Signal, error) {
	return s.token, nil
}

func waitRequest(timeout string) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"timeout": timeout}
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleList(t *testing.T) {
	reg := &stubRegistry{endpoints: []domain.Endpoint{{Name: "api", URL: "http://api.local"}}}
	srv := NewServer(reg, "test")

	resp, err := srv.handleList(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "api", resp.Endpoints[0].Name)
}

func TestHandleListError(t *testing.T) {
	reg := &stubRegistry{err: errors.New("backend down")}
	srv := NewServer(reg, "test")

	_, err := srv.handleList(context.Background(), mcp.CallToolRequest{}, nil)
	require.ErrorContains(t, err, "backend down")
}

func TestHandleEndpointsResource(t *testing.T) {
	reg := &stubRegistry{endpoints: []domain.Endpoint{{Name: "api", URL: "http://api.local"}}}
	srv := NewServer(reg, "test")

	contents, err := srv.handleEndpointsResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, `"http://api.local"`)
}

func TestHandleEndpointsResourceError(t *testing.T) {
	reg := &stubRegistry{err: errors.New("backend down")}
	srv := NewServer(reg, "test")

	_, err := srv.handleEndpointsResource(context.Background(), mcp.ReadResourceRequest{})
	require.ErrorContains(t, err, "backend down")
}

func TestHandleWait(t *testing.T) {
	tok := signal.New()
	reg := &stubRegistry{token: tok}
	srv := NewServer(reg, "test")

	t.Run("Timeout", func(t *testing.T) {
		res, err := srv.handleWait(context.Background(), waitRequest("10ms"))
		require.NoError(t, err)
		assert.Equal(t, `{"changed":false}`, resultText(t, res))
	})

	t.Run("Change", func(t *testing.T) {
		tok.Fire()
		res, err := srv.handleWait(context.Background(), waitRequest("1s"))
		require.NoError(t, err)
		assert.Equal(t, `{"changed":true}`, resultText(t, res))
	})

	t.Run("BadTimeout", func(t *testing.T) {
		res, err := srv.handleWait(context.Background(), waitRequest("soon"))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}
