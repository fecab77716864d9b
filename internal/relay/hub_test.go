package relay

import (
	"encoding/json"
	"testing"
	"time"
)

func newStudent(id string) *Client {
	return &Client{ID: id, Role: RoleStudent, Send: make(chan []byte, 16)}
}

func newTeacher() *Client {
	return &Client{ID: "t", Role: RoleTeacher, Send: make(chan []byte, 16)}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no message received")
		return Message{}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestBroadcastReachesAllStudents(t *testing.T) {
	h := NewHub()
	teacher := newTeacher()
	s1 := newStudent("s1")
	s2 := newStudent("s2")
	h.Register(teacher)
	h.Register(s1)
	h.Register(s2)

	h.BroadcastStudents(Message{Event: EventSeek, Position: 42})

	for _, c := range []*Client{s1, s2} {
		got := recv(t, c)
		if got.Event != EventSeek || got.Position != 42 {
			t.Errorf("got %+v, want seek/42", got)
		}
	}
	// The teacher does not get its own control messages back.
	expectNothing(t, teacher)
}

func TestRoomsAreIsolated(t *testing.T) {
	h1 := NewHub()
	h2 := NewHub()
	inRoom := newStudent("s1")
	otherRoom := newStudent("s2")
	h1.Register(inRoom)
	h2.Register(otherRoom)

	h1.BroadcastStudents(Message{Event: EventPlay})

	recv(t, inRoom)
	expectNothing(t, otherRoom)
}

func TestNoReplayForLateJoiner(t *testing.T) {
	h := NewHub()
	early := newStudent("early")
	h.Register(early)

	h.BroadcastStudents(Message{Event: EventSeek, Position: 7})

	late := newStudent("late")
	h.Register(late)

	recv(t, early)
	expectNothing(t, late)
}

func TestSendStudent(t *testing.T) {
	h := NewHub()
	s1 := newStudent("s1")
	s2 := newStudent("s2")
	h.Register(s1)
	h.Register(s2)

	if !h.SendStudent("s1", Message{Event: EventTranslationApproved, Language: "tr"}) {
		t.Fatal("SendStudent returned false")
	}
	got := recv(t, s1)
	if got.Event != EventTranslationApproved || got.Language != "tr" {
		t.Errorf("got %+v", got)
	}
	expectNothing(t, s2)
}

func TestSendStudentMissingIsNoop(t *testing.T) {
	h := NewHub()
	if h.SendStudent("ghost", Message{Event: EventPlay}) {
		t.Error("send to missing student should report false")
	}
}

func TestSendTeacher(t *testing.T) {
	h := NewHub()
	if h.SendTeacher(Message{Event: EventStudentJoin}) {
		t.Error("send without teacher should report false")
	}

	teacher := newTeacher()
	h.Register(teacher)
	if !h.SendTeacher(Message{Event: EventStudentJoin, Count: 3}) {
		t.Fatal("SendTeacher returned false")
	}
	got := recv(t, teacher)
	if got.Event != EventStudentJoin || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestUnregister(t *testing.T) {
	h := NewHub()
	s1 := newStudent("s1")
	h.Register(s1)

	if !h.Unregister(s1) {
		t.Fatal("Unregister returned false")
	}
	if h.StudentCount() != 0 {
		t.Errorf("StudentCount = %d, want 0", h.StudentCount())
	}
	if _, ok := <-s1.Send; ok {
		t.Error("Send channel should be closed")
	}
	// Unregistering again is a no-op.
	if h.Unregister(s1) {
		t.Error("second Unregister should return false")
	}
}

func TestUnregisterStaleConnection(t *testing.T) {
	h := NewHub()
	old := newStudent("s1")
	h.Register(old)

	// Same student ID reconnects; the old connection's unregister must not
	// remove the new one.
	fresh := newStudent("s1")
	h.Register(fresh)

	if h.Unregister(old) {
		t.Error("stale connection should not unregister the fresh one")
	}
	if h.StudentCount() != 1 {
		t.Errorf("StudentCount = %d, want 1", h.StudentCount())
	}
}

func TestTeacherReplacedOnReconnect(t *testing.T) {
	h := NewHub()
	first := newTeacher()
	second := newTeacher()
	h.Register(first)
	h.Register(second)

	// The first connection is closed, the second receives.
	if _, ok := <-first.Send; ok {
		t.Error("replaced teacher Send should be closed")
	}
	if !h.SendTeacher(Message{Event: EventStudentJoin}) {
		t.Error("new teacher should be reachable")
	}
	recv(t, second)
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()
	s := &Client{ID: "s1", Role: RoleStudent, Send: make(chan []byte, 1)}
	h.Register(s)

	s.Send <- []byte("filler")

	// Must not block.
	h.BroadcastStudents(Message{Event: EventPlay})

	if data := <-s.Send; string(data) != "filler" {
		t.Errorf("expected filler, got %s", data)
	}
	expectNothing(t, s)
}

func TestShutdownNotifiesAndCloses(t *testing.T) {
	h := NewHub()
	teacher := newTeacher()
	s1 := newStudent("s1")
	h.Register(teacher)
	h.Register(s1)

	h.Shutdown(Message{Event: EventSessionEnded, Info: "Die Session wurde beendet."})

	got := recv(t, s1)
	if got.Event != EventSessionEnded {
		t.Errorf("student got %+v", got)
	}
	if _, ok := <-s1.Send; ok {
		t.Error("student Send should be closed after shutdown")
	}
	recv(t, teacher)
	if _, ok := <-teacher.Send; ok {
		t.Error("teacher Send should be closed after shutdown")
	}
	if h.StudentCount() != 0 {
		t.Errorf("StudentCount = %d after shutdown", h.StudentCount())
	}
}
