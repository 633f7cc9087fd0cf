package websocket

import (
	"encoding/json"
	"sync"
)

// BidUpdate is pushed to watchers of an OPEN auction whenever the current
// bid moves. SEALED auctions are never broadcast: no bidder may observe
// another bidder's amount before closure.
type BidUpdate struct {
	AuctionID  string `json:"auction_id"`
	CurrentBid string `json:"current_bid"`
	BidCount   int    `json:"bid_count,omitempty"`
}

type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(auctionID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[auctionID] == nil {
		h.watchers[auctionID] = make(map[*Client]struct{})
	}
	h.watchers[auctionID][client] = struct{}{}
}

func (h *Hub) Unregister(auctionID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[auctionID] == nil {
		return
	}
	delete(h.watchers[auctionID], client)
	if len(h.watchers[auctionID]) == 0 {
		delete(h.watchers, auctionID)
	}
}

func (h *Hub) BroadcastBid(auctionID string, update BidUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.watchers[auctionID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
