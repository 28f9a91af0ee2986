package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/metrics"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, *groupchat.Room, *upload.Tracker, *status.Machine, *metrics.Metrics) {
	t.Helper()
	b := bus.New()
	room := groupchat.NewRoom(groupchat.Options{Bus: b})
	tracker := upload.NewTracker(b)
	machine := status.NewMachine(b)
	m := metrics.New()
	return New(Options{Room: room, Tracker: tracker, Machine: machine, Metrics: m}), room, tracker, machine, m
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _, _, machine, _ := newServer(t)

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"BOOTING"`)

	require.NoError(t, machine.Transition(status.Error))
	rec = get(t, s, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _, _, _, m := newServer(t)
	m.SocketEvent("in", groupchat.EventNewMessage)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "gchat_"), "expected gchat metrics in output")
}

func TestDebugRoom(t *testing.T) {
	s, room, _, _, _ := newServer(t)
	room.AddMessage(groupchat.GroupMessage{ID: 1, GroupID: 42, Content: "hello"})

	rec := get(t, s, "/debug/room")
	require.Equal(t, http.StatusOK, rec.Code)

	var state groupchat.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "hello", state.Messages[0].Content)
}

func TestDebugUploads(t *testing.T) {
	s, _, tracker, _, _ := newServer(t)
	tracker.Add("u1", "cat.png")

	rec := get(t, s, "/debug/uploads")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []upload.FileProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "cat.png", items[0].FileName)
	assert.Equal(t, upload.StatusQueued, items[0].Status)
}

func TestDisabledServer(t *testing.T) {
	s, _, _, _, _ := newServer(t)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Start())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	b := bus.New()
	s := New(Options{Addr: "127.0.0.1:0", Room: groupchat.NewRoom(groupchat.Options{}), Machine: status.NewMachine(b)})
	require.NoError(t, s.Start())
	assert.NoError(t, s.Stop(context.Background()))
}
