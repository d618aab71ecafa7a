package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ClientBuffer は購読者ごとのチャネルのバッファ長です。
const ClientBuffer = 16

// Hub は接続中のクライアントへメッセージを配信します。読み取りが追いつかないクライアントには古いものから捨てて最新を届けます。
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	// onChange は購読者数が変わるたびに呼ばれます。
	onChange func(n int)
}

// NewHub は Hub を生成します。onChange は nil を許容します。
func NewHub(onChange func(n int)) *Hub {
	return &Hub{
		clients:  make(map[chan []byte]struct{}),
		onChange: onChange,
	}
}

// Subscribe は新しいクライアントを登録します。cancel を呼ぶとチャネルは閉じられます。
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, ClientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.changed(n)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			close(ch)
			n := len(h.clients)
			h.mu.Unlock()
			h.changed(n)
		})
	}
}

// Publish は全クライアントへ msg を送ります。ブロックしません。
func (h *Hub) Publish(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		send(ch, msg)
	}
}

// send はバッファが埋まっていれば最も古いメッセージを捨ててから msg を積みます。
// 送信側は h.mu を保持しているので、空けた枠は他の送信に奪われないのだ。
func send(ch chan []byte, msg []byte) {
	for {
		select {
		case ch <- msg:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Len は購読者数を返します。
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}

// Serve は SSE 接続を張り、initial を最初に送ったあと Hub のメッセージを event として流します。
// keepAlive が 0 より大きければその間隔でコメント行を送ります。
func (h *Hub) Serve(c *gin.Context, event string, initial []byte, keepAlive time.Duration) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	msgCh, cancel := h.Subscribe()
	defer cancel()

	fmt.Fprintf(c.Writer, ": connected\n\n")
	if initial != nil {
		writeEvent(c.Writer, event, initial)
	}
	flusher.Flush()

	var tick <-chan time.Time
	if keepAlive > 0 {
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	notify := c.Request.Context().Done()
	for {
		select {
		case <-notify:
			return
		case <-tick:
			fmt.Fprintf(c.Writer, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			writeEvent(c.Writer, event, msg)
			flusher.Flush()
		}
	}
}

func writeEvent(w gin.ResponseWriter, event string, data []byte) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
