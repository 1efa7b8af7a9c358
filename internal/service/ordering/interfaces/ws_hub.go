package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"unieats/internal/pkg/logger"
	"unieats/internal/service/ordering/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 大屏部署在内网，允许所有跨域
		return true
	},
}

// KitchenHub 维护所有在线的厨房大屏连接，并把订单状态
// 变更事件广播给它们。它同时实现 domain.EventProducer，
// 可以与 Kafka 生产者一起挂在事件扇出后面。
type KitchenHub struct {
	clients    map[string]*kitchenClient
	register   chan *kitchenClient
	unregister chan *kitchenClient
	broadcast  chan []byte
	lock       sync.RWMutex
}

func NewKitchenHub() *KitchenHub {
	return &KitchenHub{
		clients:    make(map[string]*kitchenClient),
		register:   make(chan *kitchenClient),
		unregister: make(chan *kitchenClient),
		broadcast:  make(chan []byte, 64),
	}
}

// Run 驱动 hub 的注册/注销/广播循环，应在独立 goroutine 中运行
func (h *KitchenHub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.id] = client
			h.lock.Unlock()
			logger.Logger().Info().Str("client_id", client.id).Msg("kitchen display connected")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger().Info().Str("client_id", client.id).Msg("kitchen display disconnected")
		case message := <-h.broadcast:
			h.lock.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写缓冲已满的慢客户端直接丢弃本条消息
				}
			}
			h.lock.RUnlock()
		case <-ctx.Done():
			h.lock.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.lock.Unlock()
			return
		}
	}
}

// PublishStateChanged 实现 domain.EventProducer，把事件推给所有大屏
func (h *KitchenHub) PublishStateChanged(ctx context.Context, event *domain.OrderStateChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal kitchen event")
	}
	select {
	case h.broadcast <- payload:
		return nil
	default:
		return errors.New("kitchen broadcast queue is full")
	}
}

// ServeWs 把 HTTP 请求升级为 WebSocket 并注册到 hub
func (h *KitchenHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &kitchenClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   "kitchen-" + uuid.New().String()[:8],
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// kitchenClient 是一个大屏 WebSocket 连接的代表
type kitchenClient struct {
	hub  *KitchenHub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func (c *kitchenClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *kitchenClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// 大屏是只读端，读循环只消费心跳
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
