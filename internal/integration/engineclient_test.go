package integration

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/pkg/models"
)

// fakeEngine scripts the daemon side of the protocol on a net.Pipe.
type fakeEngine struct {
	t      *testing.T
	conn   net.Conn
	mu     sync.Mutex
	nextID int64

	// respond builds the result (or error) for each method call.
	respond func(req rpcRequest) (any, string)
}

func newFakeEngine(t *testing.T, respond func(req rpcRequest) (any, string)) (*fakeEngine, *EngineClient, func() []models.EngineMessage) {
	t.Helper()
	client, server := net.Pipe()

	var msgMu sync.Mutex
	var messages []models.EngineMessage
	ec := NewEngineClient(client, func(m models.EngineMessage) {
		msgMu.Lock()
		messages = append(messages, m)
		msgMu.Unlock()
	})
	t.Cleanup(func() { _ = ec.Close() })

	fe := &fakeEngine{t: t, conn: server, respond: respond}
	go fe.serve()
	t.Cleanup(func() { _ = server.Close() })

	snapshot := func() []models.EngineMessage {
		msgMu.Lock()
		defer msgMu.Unlock()
		out := make([]models.EngineMessage, len(messages))
		copy(out, messages)
		return out
	}
	return fe, ec, snapshot
}

func (f *fakeEngine) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		var req rpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		result, errMsg := f.respond(req)
		env := map[string]any{"id": req.ID}
		if errMsg != "" {
			env["error"] = errMsg
		} else if result != nil {
			env["result"] = result
		}
		f.send(env)
	}
}

func (f *fakeEngine) send(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		f.t.Errorf("fake engine encode: %v", err)
		return
	}
	data = append(data, '\n')
	_, _ = f.conn.Write(data)
}

// emit pushes an asynchronous event line to the client.
func (f *fakeEngine) emit(event models.EngineEvent, taskID *int64, text string) {
	env := map[string]any{"event": string(event)}
	if taskID != nil {
		env["task_id"] = *taskID
	}
	if text != "" {
		env["text"] = text
	}
	f.send(env)
}

func okEngine(req rpcRequest) (any, string) {
	switch req.Method {
	case "append_task":
		return map[string]int64{"task_id": 7}, ""
	case "screenshot":
		return map[string]string{"image": base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}, ""
	default:
		return map[string]bool{"ok": true}, ""
	}
}

func TestEngineClientRoundTrip(t *testing.T) {
	_, ec, _ := newFakeEngine(t, okEngine)

	if err := ec.Connect(context.Background(), "adb", "127.0.0.1:5555", "General"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	id, err := ec.AppendTask("Fight", `{"stage":"1-7"}`)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id != 7 {
		t.Errorf("engine task ID = %d, want 7", id)
	}

	if ec.Running() {
		t.Error("client must not report running before start")
	}
	if err := ec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ec.Running() {
		t.Error("client must report running after start")
	}
	if err := ec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ec.Running() {
		t.Error("client must not report running after stop")
	}
}

func TestEngineClientErrorResponses(t *testing.T) {
	_, ec, _ := newFakeEngine(t, func(req rpcRequest) (any, string) {
		return nil, "device unreachable"
	})

	if err := ec.Connect(context.Background(), "adb", "127.0.0.1:5555", ""); err == nil {
		t.Fatal("expected connect error")
	}
	if _, err := ec.AppendTask("Fight", "{}"); err == nil {
		t.Fatal("expected append error")
	}
}

func TestEngineClientEvents(t *testing.T) {
	fe, ec, snapshot := newFakeEngine(t, okEngine)

	if err := ec.Start(); err != nil {
		t.Fatal(err)
	}

	taskID := int64(7)
	fe.emit(models.EventTaskStarted, &taskID, "fight begins")
	fe.emit(models.EventLog, nil, "global line")
	fe.emit(models.EventSessionCompleted, nil, "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(snapshot()) == 3 && !ec.Running() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	msgs := snapshot()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].EngineTaskID == nil || *msgs[0].EngineTaskID != 7 || msgs[0].Text != "fight begins" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].EngineTaskID != nil {
		t.Errorf("global event carries a task ID: %+v", msgs[1])
	}
	if ec.Running() {
		t.Error("session completion must clear the running flag")
	}
}

func TestEngineClientScreenshot(t *testing.T) {
	_, ec, _ := newFakeEngine(t, okEngine)

	img, err := ec.GetImage()
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if len(img) != 3 || img[0] != 1 {
		t.Errorf("image = %v", img)
	}
}

func TestEngineClientScreenshotUnavailable(t *testing.T) {
	_, ec, _ := newFakeEngine(t, func(req rpcRequest) (any, string) {
		return map[string]string{"image": ""}, ""
	})

	if _, err := ec.GetImage(); !errors.Is(err, models.ErrImageUnavailable) {
		t.Fatalf("err = %v, want ErrImageUnavailable", err)
	}
}

func TestEngineClientConnectionLossFailsPendingCalls(t *testing.T) {
	client, server := net.Pipe()
	ec := NewEngineClient(client, nil)
	t.Cleanup(func() { _ = ec.Close() })

	errCh := make(chan error, 1)
	go func() {
		_, err := ec.AppendTask("Fight", "{}")
		errCh <- err
	}()

	// Swallow the request, then drop the connection.
	buf := make([]byte, 4096)
	if _, err := server.Read(buf); err != nil {
		t.Fatal(err)
	}
	_ = server.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error after connection loss")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not failed on connection loss")
	}
}
