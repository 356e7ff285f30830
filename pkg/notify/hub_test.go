package notify

import "testing"

func TestSubscribePublishUnsubscribe(t *testing.T) {
	h := New()
	id, ch := h.Subscribe(4)

	h.Publish(Event{Kind: ScanStateChanged, Payload: "scanning"})
	h.Publish(Event{Kind: ScanStateChanged, Payload: "finished"})

	evt := <-ch
	if evt.Payload != "scanning" {
		t.Fatalf("expected first event in order, got %v", evt.Payload)
	}
	evt = <-ch
	if evt.Payload != "finished" {
		t.Fatalf("expected second event in order, got %v", evt.Payload)
	}

	h.Unsubscribe(id)
	if h.SubscriberCount() != 0 {
		t.Fatal("expected no subscribers after unsubscribe")
	}
	// Publishing after unsubscribe must not panic or block.
	h.Publish(Event{Kind: ConnectionStateChanged, Payload: "idle"})
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := New()
	id, ch := h.Subscribe(1)

	h.Publish(Event{Kind: ScanStateChanged, Payload: 1})
	h.Publish(Event{Kind: ScanStateChanged, Payload: 2}) // channel full, dropped

	if got := h.DropCount(id); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}

	evt := <-ch
	if evt.Payload != 1 {
		t.Fatalf("expected the first event to have been delivered, got %v", evt.Payload)
	}
}

func TestPerSessionIndependence(t *testing.T) {
	h := New()
	_, chA := h.Subscribe(4)
	idB, chB := h.Subscribe(1)

	h.Publish(Event{Kind: ScanStateChanged, Payload: "a"})
	h.Publish(Event{Kind: ScanStateChanged, Payload: "b"}) // drops for B only

	if len(chA) != 2 {
		t.Fatalf("expected subscriber A to receive both events, got %d", len(chA))
	}
	if got := h.DropCount(idB); got != 1 {
		t.Fatalf("expected subscriber B to drop 1 event, got %d", got)
	}
	_ = chB
}
