package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBrowser is a scripted DevTools endpoint. Each method handler returns
// the result payload plus any events to emit after the response.
type fakeBrowser struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]func(params json.RawMessage) (interface{}, []fakeEvent, *ProtocolError)
	calls    []string
}

type fakeEvent struct {
	Method    string      `json:"method"`
	SessionID string      `json:"sessionId,omitempty"`
	Params    interface{} `json:"params"`
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()

	fb := &fakeBrowser{
		t:        t,
		handlers: make(map[string]func(json.RawMessage) (interface{}, []fakeEvent, *ProtocolError)),
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(fb.srv.URL, "http") + "/devtools/browser/fake"
		json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})
	mux.HandleFunc("/devtools/browser/fake", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fb.serve(conn)
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) handle(method string, fn func(params json.RawMessage) (interface{}, []fakeEvent, *ProtocolError)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[method] = fn
}

func (fb *fakeBrowser) reply(method string, result interface{}) {
	fb.handle(method, func(json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		return result, nil, nil
	})
}

func (fb *fakeBrowser) serve(conn *websocket.Conn) {
	for {
		var req cdpRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		fb.mu.Lock()
		fb.calls = append(fb.calls, req.Method)
		h, ok := fb.handlers[req.Method]
		fb.mu.Unlock()

		resp := map[string]interface{}{"id": req.ID}
		var events []fakeEvent
		if !ok {
			resp["result"] = map[string]interface{}{}
		} else {
			result, evs, perr := h(req.Params)
			if perr != nil {
				resp["error"] = perr
			} else {
				resp["result"] = result
			}
			events = evs
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (fb *fakeBrowser) host() (string, int) {
	addr := fb.srv.Listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (fb *fakeBrowser) connect(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, port := fb.host()
	client, err := Connect(ctx, host, port)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect_DiscoversWebSocketURL(t *testing.T) {
	fb := newFakeBrowser(t)
	client := fb.connect(t)

	assert.True(t, strings.HasPrefix(client.WebSocketURL(), "ws://"))
	assert.True(t, strings.HasSuffix(client.WebSocketURL(), "/devtools/browser/fake"))
}

func TestConnect_FailsWithBadPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "localhost", 1)
	assert.Error(t, err)
}

func TestCall_ReturnsResult(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.createTarget", map[string]string{"targetId": "T1"})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := client.NewTab(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "T1", id)
}

func TestCall_ProtocolError(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.handle("Target.closeTarget", func(json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		return nil, nil, &ProtocolError{Code: -32000, Message: "No target with given id found"}
	})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.CloseTab(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocolError))

	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, -32000, perr.Code)
}

func TestCall_AfterCloseReturnsConnectionClosed(t *testing.T) {
	fb := newFakeBrowser(t)
	client := fb.connect(t)
	require.NoError(t, client.Close())

	_, err := client.Call(context.Background(), "Browser.getVersion", nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestNavigateAndWait_ReportsDocumentStatus(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.handle("Page.navigate", func(json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		result := map[string]string{"frameId": "F1", "loaderId": "L1"}
		events := []fakeEvent{
			{Method: "Network.responseReceived", SessionID: "S1", Params: map[string]interface{}{
				"loaderId": "L1", "type": "Script",
				"response": map[string]interface{}{"url": "https://example.com/app.js", "status": 200},
			}},
			{Method: "Network.responseReceived", SessionID: "S1", Params: map[string]interface{}{
				"loaderId": "L1", "type": "Document",
				"response": map[string]interface{}{"url": "https://example.com/missing", "status": 404},
			}},
			{Method: "Page.loadEventFired", SessionID: "S1", Params: map[string]interface{}{"timestamp": 1}},
		}
		return result, events, nil
	})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := client.NavigateAndWait(ctx, "T1", "https://example.com/missing")
	require.NoError(t, err)
	assert.Equal(t, 404, res.Status)
	assert.Equal(t, "https://example.com/missing", res.URL)
	assert.Equal(t, "L1", res.LoaderID)
}

func TestNavigateAndWait_ErrorText(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.reply("Page.navigate", map[string]string{"frameId": "F1", "errorText": "net::ERR_NAME_NOT_RESOLVED"})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := client.NavigateAndWait(ctx, "T1", "https://nonexistent.invalid")
	require.NoError(t, err)
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", res.ErrorText)
	assert.Zero(t, res.Status)
}

func TestNavigateAndWait_SameDocument(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.handle("Page.navigate", func(json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		events := []fakeEvent{
			{Method: "Page.navigatedWithinDocument", SessionID: "S1", Params: map[string]interface{}{
				"frameId": "F1", "url": "https://example.com/#more",
			}},
		}
		return map[string]string{"frameId": "F1"}, events, nil
	})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	res, err := client.NavigateAndWait(ctx, "T1", "https://example.com/#more")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, res.Status)
	assert.Empty(t, res.ErrorText)
	assert.Equal(t, "https://example.com/#more", res.URL)
}

func TestNavigateAndWait_ContextDeadline(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.reply("Page.navigate", map[string]string{"frameId": "F1", "loaderId": "L1"})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.NavigateAndWait(ctx, "T1", "https://example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEval_ReturnsValueAndException(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.handle("Runtime.evaluate", func(params json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		var p struct {
			Expression string `json:"expression"`
		}
		json.Unmarshal(params, &p)
		if p.Expression == "boom()" {
			return map[string]interface{}{
				"result":           map[string]interface{}{"type": "object"},
				"exceptionDetails": map[string]interface{}{"text": "Uncaught", "exception": map[string]string{"description": "ReferenceError: boom is not defined"}},
			}, nil, nil
		}
		return map[string]interface{}{"result": map[string]interface{}{"type": "string", "value": "Example Domain"}}, nil, nil
	})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	title, err := client.GetTitle(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", title)

	_, err = client.Eval(ctx, "T1", "boom()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReferenceError")
}

func TestClick_ElementNotFound(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.reply("DOM.getDocument", map[string]interface{}{"root": map[string]int{"nodeId": 1}})
	fb.reply("DOM.querySelector", map[string]int{"nodeId": 0})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Click(ctx, "T1", "#nope")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestClick_DispatchesMouseEventsAtCenter(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.reply("Target.attachToTarget", map[string]string{"sessionId": "S1"})
	fb.reply("DOM.getDocument", map[string]interface{}{"root": map[string]int{"nodeId": 1}})
	fb.reply("DOM.querySelector", map[string]int{"nodeId": 7})
	fb.reply("DOM.getBoxModel", map[string]interface{}{
		"model": map[string]interface{}{"content": []float64{10, 20, 30, 20, 30, 40, 10, 40}},
	})

	var mu sync.Mutex
	var points [][2]float64
	fb.handle("Input.dispatchMouseEvent", func(params json.RawMessage) (interface{}, []fakeEvent, *ProtocolError) {
		var p struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		json.Unmarshal(params, &p)
		mu.Lock()
		points = append(points, [2]float64{p.X, p.Y})
		mu.Unlock()
		return map[string]interface{}{}, nil, nil
	})
	client := fb.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, client.Click(ctx, "T1", "a"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, points, 3)
	for _, p := range points {
		assert.Equal(t, [2]float64{20, 30}, p)
	}
}
