package rooms

import "testing"

func TestEventBufferOrderAndReplay(t *testing.T) {
	buf := NewEventBuffer(10)
	ev1 := buf.Append(EventRoomCreated, "r1", &Room{RoomID: "r1"})
	ev2 := buf.Append(EventRoomUpdated, "r1", &Room{RoomID: "r1"})
	ev3 := buf.Append(EventRoomDeleted, "r1", nil)

	if ev1.EventID != "1" || ev2.EventID != "2" || ev3.EventID != "3" {
		t.Fatalf("unexpected event ids: %s %s %s", ev1.EventID, ev2.EventID, ev3.EventID)
	}

	replay := buf.ReplayAfter("1")
	if len(replay) != 2 {
		t.Fatalf("expected 2 replay events, got %d", len(replay))
	}
	if replay[0].EventID != "2" || replay[1].EventID != "3" {
		t.Fatalf("unexpected replay order: %+v", replay)
	}
	if len(buf.ReplayAfter("")) != 3 {
		t.Fatal("empty cursor should replay everything")
	}
}

func TestEventBufferTrimsToMax(t *testing.T) {
	buf := NewEventBuffer(2)
	for i := 0; i < 5; i++ {
		buf.Append(EventRoomUpdated, "r1", nil)
	}
	replay := buf.ReplayAfter("")
	if len(replay) != 2 || replay[0].EventID != "4" {
		t.Fatalf("unexpected retained events: %+v", replay)
	}
}

func TestEventBufferCloseEndsSubscriptions(t *testing.T) {
	buf := NewEventBuffer(4)
	ch := buf.Subscribe()
	buf.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	late := buf.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribe after close should return closed channel")
	}
}
