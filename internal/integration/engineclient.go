package integration

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deskpilot/deskpilot/pkg/models"
)

// rpcRequest is one line-delimited JSON request to the engine daemon.
type rpcRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// rpcEnvelope is one inbound line from the engine daemon. Lines carrying an
// ID answer a request; the rest are asynchronous events.
type rpcEnvelope struct {
	ID     *int64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	Event models.EngineEvent `json:"event,omitempty"`
	Task  *int64             `json:"task_id,omitempty"`
	Text  string             `json:"text,omitempty"`
}

// EngineClient speaks the engine daemon's line-delimited JSON protocol over
// a unix socket and implements the orchestrator's engine handle. One client
// owns one connection; the read loop demultiplexes responses from events.
type EngineClient struct {
	conn      net.Conn
	onMessage func(models.EngineMessage)

	writeMu sync.Mutex
	nextID  atomic.Int64
	running atomic.Bool

	pendingMu sync.Mutex
	pending   map[int64]chan rpcEnvelope

	callTimeout time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
}

// DialEngine connects to the engine daemon's unix socket. onMessage receives
// the asynchronous event stream; it must not block.
func DialEngine(socket string, onMessage func(models.EngineMessage)) (*EngineClient, error) {
	conn, err := net.DialTimeout("unix", socket, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dialling engine socket: %w", err)
	}
	return NewEngineClient(conn, onMessage), nil
}

// NewEngineClient wraps an established connection and starts the read loop.
func NewEngineClient(conn net.Conn, onMessage func(models.EngineMessage)) *EngineClient {
	c := &EngineClient{
		conn:        conn,
		onMessage:   onMessage,
		pending:     make(map[int64]chan rpcEnvelope),
		callTimeout: 30 * time.Second,
		closed:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close tears down the connection. Pending calls fail.
func (c *EngineClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *EngineClient) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env rpcEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			continue
		}
		if env.ID != nil {
			c.resolve(*env.ID, env)
			continue
		}
		c.handleEvent(env)
	}
	c.failPending(fmt.Errorf("engine connection closed"))
}

func (c *EngineClient) resolve(id int64, env rpcEnvelope) {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- env
	}
}

func (c *EngineClient) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcEnvelope{Error: err.Error()}
		delete(c.pending, id)
	}
}

func (c *EngineClient) handleEvent(env rpcEnvelope) {
	if env.Event == models.EventSessionCompleted {
		c.running.Store(false)
	}
	if c.onMessage != nil {
		c.onMessage(models.EngineMessage{
			EngineTaskID: env.Task,
			Event:        env.Event,
			Text:         env.Text,
		})
	}
}

// call sends one request and waits for its response line.
func (c *EngineClient) call(method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding %s params: %w", method, err)
		}
		raw = data
	}

	id := c.nextID.Add(1)
	ch := make(chan rpcEnvelope, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	data, err := json.Marshal(rpcRequest{ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("sending %s request: %w", method, err)
	}

	select {
	case env := <-ch:
		if env.Error != "" {
			return nil, fmt.Errorf("%s: %s", method, env.Error)
		}
		return env.Result, nil
	case <-time.After(c.callTimeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("%s: engine did not respond", method)
	case <-c.closed:
		return nil, fmt.Errorf("%s: client closed", method)
	}
}

// Connect establishes the engine's control connection to the device.
func (c *EngineClient) Connect(ctx context.Context, adbPath, address, profile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.call("connect", map[string]string{
		"adb_path": adbPath,
		"address":  address,
		"profile":  profile,
	})
	if err != nil {
		return fmt.Errorf("connecting to device: %w", err)
	}
	return nil
}

// AppendTask queues one task in the engine and returns the engine task ID.
func (c *EngineClient) AppendTask(kind string, paramsJSON string) (int64, error) {
	result, err := c.call("append_task", map[string]string{
		"type":   kind,
		"params": paramsJSON,
	})
	if err != nil {
		return 0, err
	}
	var resp struct {
		TaskID int64 `json:"task_id"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return 0, fmt.Errorf("decoding append_task result: %w", err)
	}
	return resp.TaskID, nil
}

// Start begins executing the queued tasks.
func (c *EngineClient) Start() error {
	if _, err := c.call("start", nil); err != nil {
		return err
	}
	c.running.Store(true)
	return nil
}

// Stop halts the running session.
func (c *EngineClient) Stop() error {
	if _, err := c.call("stop", nil); err != nil {
		return err
	}
	c.running.Store(false)
	return nil
}

// Running reports whether an engine session is in flight. It flips false
// when the engine reports session completion.
func (c *EngineClient) Running() bool {
	return c.running.Load()
}

// GetImage fetches the engine's latest frame as raw bytes.
func (c *EngineClient) GetImage() ([]byte, error) {
	result, err := c.call("screenshot", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("decoding screenshot result: %w", err)
	}
	if resp.Image == "" {
		return nil, models.ErrImageUnavailable
	}
	img, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot payload: %w", err)
	}
	return img, nil
}
