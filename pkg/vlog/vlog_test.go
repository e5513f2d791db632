package vlog

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func newTestServer(t *testing.T) (*Server, *LevelTable) {
	levels := NewLevelTable()
	dir := t.TempDir()
	server, err := Listen(filepath.Join(dir, "ctl"), levels.Set, levels.List)
	assert.NilError(t, err)
	t.Cleanup(func() { server.Close() })
	return server, levels
}

func TestSetAndListRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)

	client, err := Connect(server.Path())
	assert.NilError(t, err)
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- server.ServeOne() }()
	reply, err := client.Transact("set ANY:console:dbg")
	assert.NilError(t, err)
	assert.NilError(t, <-done)
	assert.Equal(t, reply, "ack")

	done = make(chan error, 1)
	go func() { done <- server.ServeOne() }()
	reply, err = client.Transact("list")
	assert.NilError(t, err)
	assert.NilError(t, <-done)
	assert.Equal(t, reply, "ANY:console:dbg\n")
}

func TestUnknownCommandNaks(t *testing.T) {
	server, _ := newTestServer(t)

	client, err := Connect(server.Path())
	assert.NilError(t, err)
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- server.ServeOne() }()
	reply, err := client.Transact("frobnicate")
	assert.NilError(t, err)
	assert.NilError(t, <-done)
	assert.Equal(t, reply, "nak")
}

func TestLevelTableInvalidSpec(t *testing.T) {
	table := NewLevelTable()
	assert.ErrorContains(t, table.Set("bad-spec"), "invalid")
}

func TestResolveServerPath(t *testing.T) {
	assert.Equal(t, resolveServerPath("/abs/path"), "/abs/path")
	got := resolveServerPath("")
	assert.Assert(t, len(got) > len(defaultDir))
}
