package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID       uint
	UserType string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)

		case message := <-h.broadcast:
			h.mutex.RLock()
			var stalled []*Client
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					stalled = append(stalled, client)
				}
			}
			h.mutex.RUnlock()
			h.evict(stalled)
		}
	}
}

// evict removes stalled clients and closes their send channels. Callers
// collect the clients under the read lock and hand them over here; the
// membership recheck under the write lock keeps a channel from being
// closed twice when two senders spot the same stalled client.
func (h *Hub) evict(stalled []*Client) {
	if len(stalled) == 0 {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, client := range stalled {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.Send)
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()
	h.evict(stalled)
}

// BroadcastToUserType sends a message to all users of a specific type
func (h *Hub) BroadcastToUserType(userType string, message []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for client := range h.clients {
		if client.UserType == userType {
			select {
			case client.Send <- message:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()
	h.evict(stalled)
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DriverLocationUpdate is pushed to riders tracking their driver
type DriverLocationUpdate struct {
	DriverID uint `json:"driverId"`
	Location struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Heading float64 `json:"heading"`
	} `json:"location"`
}

// RideStatusUpdate notifies both parties of a lifecycle transition
type RideStatusUpdate struct {
	RequestID uint   `json:"requestId"`
	RideID    uint   `json:"rideId,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// MatchOffer notifies a driver that matching picked them for a request
type MatchOffer struct {
	RequestID  uint    `json:"requestId"`
	DistanceKm float64 `json:"distanceKm"`
	EtaMinutes int     `json:"etaMinutes"`
}

// SendDriverLocationUpdate broadcasts a driver position to all clients
func (h *Hub) SendDriverLocationUpdate(update DriverLocationUpdate) {
	h.send("driver_location_update", update, 0)
}

// SendRideStatusUpdate sends a lifecycle transition to one user
func (h *Hub) SendRideStatusUpdate(userID uint, update RideStatusUpdate) {
	h.send("ride_status_update", update, userID)
}

// SendMatchOffer sends a match offer to the chosen driver
func (h *Hub) SendMatchOffer(driverID uint, offer MatchOffer) {
	h.send("match_offer", offer, driverID)
}

// send marshals a typed message and routes it; userID 0 means broadcast.
func (h *Hub) send(msgType string, data interface{}, userID uint) {
	message := WebSocketMessage{Type: msgType, Data: data}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msgType, err)
		return
	}

	if userID == 0 {
		h.BroadcastToAll(payload)
		return
	}
	h.BroadcastToUser(userID, payload)
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:       userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// The client-to-server channel is only used for keepalives today;
		// all mutations go through the REST API.
		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshaling WebSocket message: %v", err)
			continue
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
