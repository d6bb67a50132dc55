package events

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan DriverReadyEvent, 1)

	unsub := bus.Subscribe(func(e DriverReadyEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(DriverReadyEvent{SessionID: "abc123", Timestamp: "2025-01-27T10:30:00Z"})

	select {
	case got := <-received:
		if got.SessionID != "abc123" {
			t.Errorf("SessionID = %q, want abc123", got.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan DriverErrorEvent, 1)
	received2 := make(chan DriverErrorEvent, 1)

	unsub1 := bus.Subscribe(func(e DriverErrorEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e DriverErrorEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(DriverErrorEvent{Stage: "spawning", Error: "boom"})

	for i, ch := range []chan DriverErrorEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DriverStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e DriverStateChangedEvent) { received <- e })

	bus.Publish(DriverStateChangedEvent{From: "idle", To: "reaping"})
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}

	unsub()

	bus.Publish(DriverStateChangedEvent{From: "reaping", To: "spawning"})
	select {
	case <-received:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	readyReceived := make(chan bool, 1)
	errorReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(DriverReadyEvent) { readyReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(DriverErrorEvent) { errorReceived <- true })
	defer unsub2()

	bus.Publish(DriverReadyEvent{SessionID: "s"})
	<-readyReceived

	select {
	case <-errorReceived:
		t.Fatal("error subscriber received a ready event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_OrderingPerSubscriber(t *testing.T) {
	bus := New()
	const n = 50
	got := make(chan string, n)

	unsub := bus.Subscribe(func(e DriverStateChangedEvent) { got <- e.To })
	defer unsub()

	for i := range n {
		bus.Publish(DriverStateChangedEvent{To: string(rune('A' + i%26))})
	}

	var b strings.Builder
	for range n {
		select {
		case s := <-got:
			b.WriteString(s)
		case <-time.After(time.Second):
			t.Fatal("timed out collecting events")
		}
	}

	var want strings.Builder
	for i := range n {
		want.WriteRune(rune('A' + i%26))
	}
	if b.String() != want.String() {
		t.Errorf("order = %s, want %s", b.String(), want.String())
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(LogEntryEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(LogEntryEvent{Level: "info", Message: "x"})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_NilAndUnknown(_ *testing.T) {
	var nilBus *Bus
	nilBus.Publish(DriverReadyEvent{})
	nilBus.Subscribe(func(DriverReadyEvent) {})()

	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 4)

	unsubReady := SubscribeToChannel[DriverReadyEvent](bus, ch)
	defer unsubReady()
	unsubState := SubscribeToChannel[DriverStateChangedEvent](bus, ch)
	defer unsubState()

	bus.Publish(DriverReadyEvent{SessionID: "abc123"})

	select {
	case ev := <-ch:
		ready, ok := ev.(DriverReadyEvent)
		if !ok || ready.SessionID != "abc123" {
			t.Errorf("got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[DriverErrorEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(DriverErrorEvent{Stage: "spawning"})
		done <- true
	}()

	<-done
}

func TestEventJSON(t *testing.T) {
	ev := DriverReadyEvent{
		SessionID:    "abc123",
		Capabilities: map[string]any{"browserName": "chrome"},
		Payload:      json.RawMessage(`{"sessionId":"abc123"}`),
		Timestamp:    "2025-01-27T10:30:00Z",
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"session_id":"abc123"`, `"payload":{"sessionId":"abc123"}`, `"browserName":"chrome"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s missing %s", data, want)
		}
	}

	errData, _ := json.Marshal(DriverErrorEvent{Stage: "spawning", Error: "exit 1"})
	if strings.Contains(string(errData), "pid") {
		t.Errorf("zero pid should be omitted: %s", errData)
	}
}
