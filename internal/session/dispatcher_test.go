package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargotrack/internal/cargo/models"
	"cargotrack/internal/cargo/service"
	"cargotrack/pkg/requestcontext"
)

func TestReplyLine(t *testing.T) {
	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{name: "ok with text", reply: Reply{OK: true, Text: "pong"}, want: "OK pong"},
		{name: "error", reply: Reply{Text: "Unknown command"}, want: "ERR Unknown command"},
		{name: "bare ok", reply: Reply{OK: true}, want: "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reply.Line())
		})
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	s, err := New("sess-1", "TRK000001", server, service.New(service.WithSequence(models.NewSequence(1))))
	require.NoError(t, err)
	return s
}

func TestDispatcherHandle(t *testing.T) {
	d := NewDispatcher()
	s := newTestSession(t)
	ctx := context.Background()

	t.Run("blank line", func(t *testing.T) {
		assert.Equal(t, "ERR Unknown command", d.Handle(ctx, s, "   ").Line())
	})

	t.Run("extra arguments are refused where counted", func(t *testing.T) {
		assert.Equal(t, "ERR Usage: UNLOAD <item_id>", d.Handle(ctx, s, "UNLOAD a b").Line())
	})

	t.Run("extra arguments are ignored for create", func(t *testing.T) {
		assert.Equal(t, "OK CI00000001", d.Handle(ctx, s, "CREATE_ITEM a b c d e f").Line())
	})

	t.Run("quit closes", func(t *testing.T) {
		reply := d.Handle(ctx, s, "quit")
		assert.True(t, reply.Close)
		assert.Equal(t, "OK bye", reply.Line())
	})

	t.Run("handler panic becomes an error reply", func(t *testing.T) {
		d.commands["BOOM"] = command{usage: "BOOM", maxArgs: -1, run: func(context.Context, *Session, []string) (Reply, error) {
			panic("boom")
		}}
		assert.Equal(t, "ERR internal error", d.Handle(ctx, s, "BOOM").Line())
	})

	t.Run("request context carries the session", func(t *testing.T) {
		var seen context.Context
		d.commands["PEEK"] = command{usage: "PEEK", maxArgs: -1, run: func(ctx context.Context, _ *Session, _ []string) (Reply, error) {
			seen = ctx
			return ok("peeked")
		}}
		d.Handle(ctx, s, "PEEK")
		require.NotNil(t, seen)
		assert.Equal(t, "sess-1", requestcontext.SessionID(seen))
		assert.Equal(t, DefaultUser, requestcontext.User(seen))
		assert.NotEmpty(t, requestcontext.RequestID(seen))
	})
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments("X", []string{"owner=zed", "state=in", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "zed", "state": "in", "empty": ""}, got)

	_, err = parseAssignments("X", []string{"=zed"})
	assert.EqualError(t, err, "Usage: X")
}

func TestEventMarshalJSON(t *testing.T) {
	id := "CI00000001"
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "cargo",
			event: Event{When: time.Unix(1, 500_000_000), Kind: "cargo", ID: &id, Value: models.StateInTransit},
			want:  `{"when":1.5,"obj":["cargo","CI00000001","in transit"]}`,
		},
		{
			name:  "container",
			event: Event{When: time.Unix(2, 0), Kind: "container", ID: &id, Value: models.Location{Lon: 1, Lat: -2}},
			want:  `{"when":2,"obj":["container","CI00000001",[1,-2]]}`,
		},
		{
			name:  "generic",
			event: Event{When: time.Unix(3, 0), Kind: kindGeneric},
			want:  `{"when":3,"obj":["generic",null,null]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.event.MarshalJSON()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}
