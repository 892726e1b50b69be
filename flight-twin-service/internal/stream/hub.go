/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/gorilla/websocket"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

type client struct {
	conn      *websocket.Conn
	vehicleID string
	send      chan []byte
}

// Hub streams twin updates to websocket subscribers. A subscriber registered with a vehicle id
// only receives that vehicle's updates, an empty vehicle id receives all of them.
type Hub struct {
	lc       logger.LoggingClient
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

func NewHub(lc logger.LoggingClient) *Hub {
	return &Hub{
		lc: lc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and blocks until the subscriber disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, vehicleID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lc.Errorf("Error upgrading to websocket connection: %v", err)
		return err
	}
	c := &client{conn: conn, vehicleID: vehicleID, send: make(chan []byte, sendBufferSize)}
	h.register(c)
	h.lc.Infof("websocket subscriber connected for vehicle %q", vehicleID)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only watches for the subscriber going away
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.lc.Warnf("websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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
				h.lc.Errorf("Write error: %v", err)
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

// Publish queues payload for the matching subscribers. Subscribers whose buffer is full miss the message.
func (h *Hub) Publish(_ context.Context, _ string, payload interface{}) error {
	vehicleID := ""
	switch p := payload.(type) {
	case twin.TwinUpdate:
		vehicleID = p.VehicleID
	case *twin.TwinUpdate:
		vehicleID = p.VehicleID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to encode stream payload: %v", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.vehicleID != "" && vehicleID != "" && c.vehicleID != vehicleID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.lc.Warnf("dropping stream message for slow subscriber of vehicle %q", c.vehicleID)
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
