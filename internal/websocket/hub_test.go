package websocket

import (
	"encoding/json"
	"testing"
)

func testClient() *Client {
	return &Client{send: make(chan []byte, 10)}
}

func TestBroadcastReachesOnlyWatchedAuction(t *testing.T) {
	hub := NewHub()
	watcher := testClient()
	other := testClient()
	hub.Register("auc-1", watcher)
	hub.Register("auc-2", other)

	hub.BroadcastBid("auc-1", BidUpdate{AuctionID: "auc-1", CurrentBid: "102000.00", BidCount: 3})

	select {
	case raw := <-watcher.send:
		var update BidUpdate
		if err := json.Unmarshal(raw, &update); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if update.CurrentBid != "102000.00" || update.BidCount != 3 {
			t.Fatalf("unexpected update: %+v", update)
		}
	default:
		t.Fatalf("watcher received nothing")
	}

	select {
	case <-other.send:
		t.Fatalf("watcher of another auction received the update")
	default:
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	watcher := testClient()
	hub.Register("auc-1", watcher)
	hub.Unregister("auc-1", watcher)

	hub.BroadcastBid("auc-1", BidUpdate{AuctionID: "auc-1", CurrentBid: "1.00"})

	select {
	case <-watcher.send:
		t.Fatalf("unregistered client received the update")
	default:
	}
}

func TestBroadcastSkipsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{send: make(chan []byte)}
	hub.Register("auc-1", slow)

	// An unbuffered, unread channel must not block the broadcaster.
	hub.BroadcastBid("auc-1", BidUpdate{AuctionID: "auc-1", CurrentBid: "1.00"})
}
