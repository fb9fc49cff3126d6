package streamio

import "testing"

func TestDirectionOf(t *testing.T) {
	cases := map[uint64]Direction{
		0: Bidirectional,
		1: Bidirectional,
		2: Unidirectional,
		3: Unidirectional,
		4: Bidirectional,
		6: Unidirectional,
	}
	for id, want := range cases {
		if got := DirectionOf(id); got != want {
			t.Fatalf("stream %d: got %s want %s", id, got, want)
		}
	}
}

func TestStreamWrongDirectionRejected(t *testing.T) {
	recvOnly := NewStream(2, nil, NewStreamReceiver())
	if _, err := recvOnly.NextFrame(100); err != ErrWrongDirection {
		t.Fatalf("expected ErrWrongDirection, got %v", err)
	}

	sendOnly := NewStream(3, NewStreamSender(3, 1), nil)
	if err := sendOnly.Deliver(frame(0, []byte("x"), false)); err != ErrWrongDirection {
		t.Fatalf("expected ErrWrongDirection, got %v", err)
	}
}

func TestStreamIsTerminal(t *testing.T) {
	sender := NewStreamSender(0, 1)
	receiver := NewStreamReceiver()
	s := NewStream(0, sender, receiver)

	if s.IsTerminal() {
		t.Fatal("fresh stream should not be terminal")
	}

	sender.Finish()
	f, err := sender.GenerateFrame(100)
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || !f.Fin {
		t.Fatalf("expected terminal empty frame, got %+v", f)
	}
	if s.IsTerminal() {
		t.Fatal("receiver has not observed fin yet, stream should not be terminal")
	}

	if err := receiver.ReceiveFrame(f); err != nil {
		t.Fatal(err)
	}
	if !s.IsTerminal() {
		t.Fatal("expected stream terminal after receiver observes fin")
	}
}
