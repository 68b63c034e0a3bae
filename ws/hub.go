// Package ws menyiarkan perubahan status booking ke dashboard admin lewat
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	EventBookingStatus      = "booking_status"
	EventBookingTransferred = "booking_transferred"
)

// Event adalah pesan yang dikirim ke setiap client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client mewakili koneksi WebSocket
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub mengelola semua koneksi client
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	connected atomic.Int64
	done      chan struct{}
	logger    zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "ws").Logger(),
	}
}

// Run memproses register, unregister, dan broadcast sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.Clients {
				h.drop(client)
			}
			close(h.done)
			return
		case client := <-h.Register:
			h.Clients[client] = true
			h.connected.Store(int64(len(h.Clients)))
			h.logger.Debug().Int("clients", len(h.Clients)).Msg("client registered")
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				h.drop(client)
				h.logger.Debug().Int("clients", len(h.Clients)).Msg("client unregistered")
			}
		case message := <-h.Broadcast:
			for client := range h.Clients {
				select {
				case client.Send <- message:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.Clients, client)
	close(client.Send)
	h.connected.Store(int64(len(h.Clients)))
}

// Len mengembalikan jumlah client yang sedang terhubung.
func (h *Hub) Len() int {
	return int(h.connected.Load())
}

// Publish mengirim event ke semua client. Event dibuang bila antrean
// broadcast penuh, supaya pemanggil tidak pernah tertahan oleh client lambat.
func (h *Hub) Publish(eventType string, data interface{}) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("marshal ws event")
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.logger.Warn().Str("event", eventType).Msg("ws broadcast queue full, event dropped")
	}
}
