package ws

import (
    "encoding/json"
    "log"
    "time"

    "github.com/gorilla/websocket"

    "github.com/nkodex/examsync_backend/internal/sync"
)

const (
    writeWait      = 10 * time.Second
    pongWait       = 60 * time.Second
    pingPeriod     = (pongWait * 9) / 10
    sendBufferSize = 256
)

type syncMessage struct {
    examID  string
    payload []byte
}

// SyncHub pushes sync/conflict events to dashboard clients. Admin clients
// see every exam; other clients only the exams they subscribed to. Delivery
// is best-effort; a slow client is dropped, never waited on.
type SyncHub struct {
    register   chan *syncClient
    unregister chan *syncClient
    broadcast  chan syncMessage
    clients    map[*syncClient]struct{}
}

func NewSyncHub() *SyncHub {
    return &SyncHub{
        register:   make(chan *syncClient),
        unregister: make(chan *syncClient),
        broadcast:  make(chan syncMessage, 256),
        clients:    make(map[*syncClient]struct{}),
    }
}

func (h *SyncHub) Run() {
    for {
        select {
        case client := <-h.register:
            h.clients[client] = struct{}{}
        case client := <-h.unregister:
            if _, ok := h.clients[client]; ok {
                delete(h.clients, client)
                close(client.send)
                client.conn.Close()
            }
        case msg := <-h.broadcast:
            for client := range h.clients {
                if !client.allowAll {
                    if _, ok := client.allowedExams[msg.examID]; !ok {
                        continue
                    }
                }
                select {
                case client.send <- msg.payload:
                default:
                    delete(h.clients, client)
                    close(client.send)
                    client.conn.Close()
                }
            }
        }
    }
}

// Publish satisfies sync.EventSink.
func (h *SyncHub) Publish(evt sync.Event) {
    if h == nil {
        return
    }
    data, err := json.Marshal(evt)
    if err != nil {
        log.Printf("ws: failed to marshal sync event: %v", err)
        return
    }
    h.broadcast <- syncMessage{examID: evt.ExamID, payload: data}
}

type syncClient struct {
    hub          *SyncHub
    conn         *websocket.Conn
    send         chan []byte
    allowedExams map[string]struct{}
    allowAll     bool
}

func newSyncClient(hub *SyncHub, conn *websocket.Conn, allowed map[string]struct{}, allowAll bool) *syncClient {
    return &syncClient{
        hub:          hub,
        conn:         conn,
        send:         make(chan []byte, sendBufferSize),
        allowedExams: allowed,
        allowAll:     allowAll,
    }
}

func (c *syncClient) readPump() {
    defer func() {
        c.hub.unregister <- c
    }()
    c.conn.SetReadLimit(512)
    c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        c.conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })
    for {
        if _, _, err := c.conn.ReadMessage(); err != nil {
            return
        }
    }
}

func (c *syncClient) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.conn.Close()
    }()
    for {
        select {
        case msg, ok := <-c.send:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            w, err := c.conn.NextWriter(websocket.TextMessage)
            if err != nil {
                return
            }
            if _, err := w.Write(msg); err != nil {
                return
            }
            if err := w.Close(); err != nil {
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
