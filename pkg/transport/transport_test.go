package transport_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/prepwise/pkg/transport"
)

func TestHub_EmitOrderAndUnsubscribe(t *testing.T) {
	t.Parallel()

	var h transport.Hub
	var order []int
	unsubA := h.Subscribe(func(transport.Event) { order = append(order, 1) })
	h.Subscribe(func(transport.Event) { order = append(order, 2) })

	h.Emit(transport.Event{Type: transport.EventCallStart})
	unsubA()
	unsubA()
	h.Emit(transport.Event{Type: transport.EventCallEnd})

	want := []int{1, 2, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestHub_HandlerMayUnsubscribeItself(t *testing.T) {
	t.Parallel()

	var h transport.Hub
	var calls int
	var unsub func()
	unsub = h.Subscribe(func(transport.Event) {
		calls++
		unsub()
	})
	h.Emit(transport.Event{Type: transport.EventSpeechStart})
	h.Emit(transport.Event{Type: transport.EventSpeechEnd})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMessage_IsFinalTranscript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  transport.Message
		want bool
	}{
		{transport.Message{Type: "transcript", TranscriptType: "final"}, true},
		{transport.Message{Type: "transcript", TranscriptType: "partial"}, false},
		{transport.Message{Type: "function-call", TranscriptType: "final"}, false},
		{transport.Message{}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsFinalTranscript(); got != tt.want {
			t.Errorf("%+v.IsFinalTranscript() = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestErrorPayload_Text(t *testing.T) {
	t.Parallel()

	if got := (transport.ErrorPayload{Message: "a", ErrorMsg: "b"}).Text(); got != "a" {
		t.Errorf("Text() = %q, want a", got)
	}
	if got := (transport.ErrorPayload{ErrorMsg: "b"}).Text(); got != "b" {
		t.Errorf("Text() = %q, want b", got)
	}
	if got := (transport.Event{Type: transport.EventError}).ErrorText(); got != "" {
		t.Errorf("ErrorText() without payload = %q", got)
	}
}

func TestLazy_BuildsOnce(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	l := transport.NewLazy(func() (transport.Transport, error) {
		builds.Add(1)
		return transport.Unavailable{}, nil
	})
	if builds.Load() != 0 {
		t.Fatal("factory ran before first Get")
	}
	a := l.Get()
	b := l.Get()
	if a != b {
		t.Error("Get returned different transports")
	}
	if builds.Load() != 1 {
		t.Errorf("builds = %d, want 1", builds.Load())
	}
}

func TestLazy_FallsBackToUnavailable(t *testing.T) {
	t.Parallel()

	l := transport.NewLazy(func() (transport.Transport, error) {
		return nil, errors.New("missing bridge url")
	})
	tr := l.Get()

	err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil)
	if !errors.Is(err, transport.ErrUnavailable) {
		t.Fatalf("Start err = %v, want ErrUnavailable", err)
	}
	if err := tr.Stop(context.Background()); err != nil {
		t.Errorf("Stop on unavailable transport: %v", err)
	}
	tr.Subscribe(func(transport.Event) {})()
}

func TestLazy_NilFactory(t *testing.T) {
	t.Parallel()

	tr := transport.NewLazy(nil).Get()
	if err := tr.Start(context.Background(), transport.Target{}, nil); !errors.Is(err, transport.ErrUnavailable) {
		t.Fatalf("Start err = %v, want ErrUnavailable", err)
	}
}
