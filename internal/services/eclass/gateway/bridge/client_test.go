package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/gorilla/websocket"
)

type handlerFunc func(payload json.RawMessage) (any, *wireError)

// fakeBridge answers requests from a per-op handler table and records
// every request it saw.
type fakeBridge struct {
	t        *testing.T
	server   *httptest.Server
	handlers map[string]handlerFunc

	mu       sync.Mutex
	requests []request
	auth     string
	conn     *websocket.Conn
	silent   bool
}

func newFakeBridge(t *testing.T, handlers map[string]handlerFunc) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{t: t, handlers: handlers}
	upgrader := websocket.Upgrader{}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.auth = r.Header.Get("Authorization")
		fb.conn = conn
		fb.mu.Unlock()
		fb.serve(conn)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBridge) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var raw struct {
			ID      uint64          `json:"id"`
			Op      string          `json:"op"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}
		fb.mu.Lock()
		fb.requests = append(fb.requests, request{ID: raw.ID, Op: raw.Op, Payload: raw.Payload})
		silent := fb.silent
		fb.mu.Unlock()
		if silent {
			continue
		}

		resp := map[string]any{"id": raw.ID, "ok": true}
		handler, ok := fb.handlers[raw.Op]
		if !ok {
			resp["ok"] = false
			resp["error"] = wireError{Code: "unsupported", Message: raw.Op}
		} else if result, werr := handler(raw.Payload); werr != nil {
			resp["ok"] = false
			resp["error"] = werr
		} else if result != nil {
			resp["result"] = result
		}
		fb.mu.Lock()
		err := conn.WriteJSON(resp)
		fb.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (fb *fakeBridge) push(t *testing.T, event string, payload any) {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.conn.WriteJSON(map[string]any{"event": event, "payload": payload}); err != nil {
		t.Fatalf("push event: %v", err)
	}
}

func (fb *fakeBridge) seen() []request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]request(nil), fb.requests...)
}

func (fb *fakeBridge) dial(t *testing.T) *Client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(fb.server.URL, "http")
	client, err := Dial(context.Background(), url, "secret")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func ok(result any) handlerFunc {
	return func(json.RawMessage) (any, *wireError) { return result, nil }
}

func notFound() handlerFunc {
	return func(json.RawMessage) (any, *wireError) {
		return nil, &wireError{Code: codeNotFound, Message: "gone"}
	}
}

func TestDialRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := Dial(context.Background(), "", "x"); err == nil {
		t.Fatal("expected empty url error")
	}
}

func TestSendToChannelEncodesContent(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{opSendChannel: ok(messageResult{MessageID: "m-1"})})
	client := fb.dial(t)

	content := domain.Content{Text: "hello", Embed: &domain.Embed{
		Title:  "Analysis",
		Color:  0x32a852,
		Fields: []domain.EmbedField{{Name: "When", Value: "10:00", Inline: true}},
	}}
	messageID, err := client.SendToChannel(context.Background(), "chan-1", content)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if messageID != "m-1" {
		t.Fatalf("message id = %q, want m-1", messageID)
	}
	requests := fb.seen()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	var got channelMessage
	if err := json.Unmarshal(requests[0].Payload.(json.RawMessage), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ChannelID != "chan-1" || got.Content.Text != "hello" || got.Content.Embed == nil {
		t.Fatalf("payload = %+v", got)
	}
	if got.Content.Embed.Color != 0x32a852 || len(got.Content.Embed.Fields) != 1 || !got.Content.Embed.Fields[0].Inline {
		t.Fatalf("embed = %+v", got.Content.Embed)
	}
	fb.mu.Lock()
	auth := fb.auth
	fb.mu.Unlock()
	if auth != "Bearer secret" {
		t.Fatalf("authorization = %q, want Bearer secret", auth)
	}
}

func TestNotFoundMapsToDomainSentinels(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{
		opEditMessage:    notFound(),
		opDeleteRole:     notFound(),
		opGrantRole:      notFound(),
		opClearReactions: notFound(),
	})
	client := fb.dial(t)
	ctx := context.Background()

	if err := client.EditMessage(ctx, "c", "m", domain.Content{Text: "x"}); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("edit error = %v, want %v", err, domain.ErrMessageNotFound)
	}
	if err := client.ClearReactions(ctx, "c", "m"); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("clear error = %v, want %v", err, domain.ErrMessageNotFound)
	}
	if err := client.DeleteRole(ctx, "r"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("delete role error = %v, want %v", err, domain.ErrRoleNotFound)
	}
	if err := client.GrantRole(ctx, "u", "r"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("grant error = %v, want %v", err, domain.ErrRoleNotFound)
	}
}

func TestRemoteErrorsSurface(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{
		opCreateRole: func(json.RawMessage) (any, *wireError) {
			return nil, &wireError{Code: "forbidden", Message: "missing permission"}
		},
	})
	client := fb.dial(t)

	_, err := client.CreateRole(context.Background(), "Analysis")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want RemoteError", err)
	}
	if remote.Code != "forbidden" || remote.Op != opCreateRole {
		t.Fatalf("remote error = %+v", remote)
	}
	if errors.Is(err, errNotFound) {
		t.Fatal("forbidden must not match not found")
	}
}

func TestRoleQueries(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{
		opFindRole:      ok(roleResult{RoleID: "r-1", Found: true}),
		opRoleExists:    ok(presenceResult{Exists: false}),
		opCreateRole:    ok(roleResult{RoleID: "r-2"}),
		opMemberHasRole: ok(presenceResult{Exists: true}),
	})
	client := fb.dial(t)
	ctx := context.Background()

	roleID, found, err := client.FindRoleByName(ctx, "Analysis")
	if err != nil || !found || roleID != "r-1" {
		t.Fatalf("find = %q, %v, %v", roleID, found, err)
	}
	exists, err := client.RoleExists(ctx, "r-1")
	if err != nil || exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
	created, err := client.CreateRole(ctx, "Other")
	if err != nil || created != "r-2" {
		t.Fatalf("create = %q, %v", created, err)
	}
	has, err := client.MemberHasRole(ctx, "u-1", "r-2")
	if err != nil || !has {
		t.Fatalf("has role = %v, %v", has, err)
	}
}

func TestBulkSendDirectReportsEachRecipient(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{
		opSendDirect: func(payload json.RawMessage) (any, *wireError) {
			var msg directMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				return nil, &wireError{Code: "bad_request", Message: err.Error()}
			}
			if msg.UserID == "closed-dms" {
				return nil, &wireError{Code: "forbidden", Message: "cannot message user"}
			}
			return nil, nil
		},
	})
	client := fb.dial(t)

	results := client.BulkSendDirect(context.Background(), []string{"u-1", "closed-dms", "u-2"}, domain.Content{Text: "soon"})
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, result := range results {
		failed := result.Err != nil
		if failed != (result.UserID == "closed-dms") {
			t.Fatalf("result %s err = %v", result.UserID, result.Err)
		}
	}
	if got := len(fb.seen()); got != 3 {
		t.Fatalf("requests = %d, want 3", got)
	}
}

func TestCallTimesOutWithoutResponse(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, nil)
	client := fb.dial(t)
	fb.mu.Lock()
	fb.silent = true
	fb.mu.Unlock()
	client.callTO = 50 * time.Millisecond

	err := client.SendDirect(context.Background(), "u-1", domain.Content{Text: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want %v", err, context.DeadlineExceeded)
	}
	client.mu.Lock()
	pending := len(client.pending)
	client.mu.Unlock()
	if pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
}

func TestReactionEventsAreStreamed(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{opSendDirect: ok(nil)})
	client := fb.dial(t)
	// A round trip guarantees the server side connection is registered.
	if err := client.SendDirect(context.Background(), "u-1", domain.Content{Text: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	fb.push(t, eventReactionAdd, reactionEvent{MessageID: "m-1", UserID: "u-2", Emoji: "✅"})
	fb.push(t, eventReactionRemove, reactionEvent{MessageID: "m-1", UserID: "u-2", Emoji: "✅"})
	fb.push(t, eventReactionAdd, reactionEvent{MessageID: "m-1", UserID: "bot-1", Emoji: "✅", Bot: true})

	want := []domain.Reaction{
		{MessageID: "m-1", UserID: "u-2", Emoji: "✅", Added: true},
		{MessageID: "m-1", UserID: "u-2", Emoji: "✅", Added: false},
		{MessageID: "m-1", UserID: "bot-1", Emoji: "✅", Bot: true, Added: true},
	}
	for i, w := range want {
		select {
		case got := <-client.Reactions():
			if got != w {
				t.Fatalf("reaction %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for reaction %d", i)
		}
	}
}

func TestCloseFailsLaterCalls(t *testing.T) {
	t.Parallel()

	fb := newFakeBridge(t, map[string]handlerFunc{opSendDirect: ok(nil)})
	client := fb.dial(t)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.SendDirect(context.Background(), "u-1", domain.Content{Text: "x"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("error = %v, want %v", err, ErrClosed)
	}
	select {
	case <-client.Done():
	default:
		t.Fatal("expected done to be closed")
	}
}
