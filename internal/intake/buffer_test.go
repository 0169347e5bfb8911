package intake

import (
	"reflect"
	"sync"
	"testing"
)

func TestBuffer_FIFO(t *testing.T) {
	b := NewBuffer[int](4)
	b.Send(1, 2)
	if got := b.Drain(1); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("Drain(1) = %v, want [1]", got)
	}
	// Wrap the ring before growing.
	b.Send(3, 4, 5, 6, 7)
	if got := b.Drain(0); !reflect.DeepEqual(got, []int{2, 3, 4, 5, 6, 7}) {
		t.Errorf("Drain(0) = %v, want [2 3 4 5 6 7]", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestBuffer_Grows(t *testing.T) {
	b := NewBuffer[int](10)
	for i := 0; i < 100; i++ {
		if !b.Send(i) {
			t.Fatalf("Send(%d) rejected", i)
		}
	}

	st := b.Stats()
	if st.Count != 100 || st.Received != 100 {
		t.Errorf("Stats = %+v", st)
	}
	if st.Grows == 0 || st.Capacity <= 100 {
		t.Errorf("buffer did not grow: %+v", st)
	}
	// Stays below the growth threshold.
	if st.Count*100 >= st.Capacity*growThreshold {
		t.Errorf("count %d at or above %d%% of capacity %d", st.Count, growThreshold, st.Capacity)
	}

	got := b.Drain(0)
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestBuffer_DrainEmpty(t *testing.T) {
	b := NewBuffer[int](4)
	if got := b.Drain(10); got != nil {
		t.Errorf("Drain on empty = %v, want nil", got)
	}
}

func TestBuffer_Close(t *testing.T) {
	b := NewBuffer[string](4)
	b.Send("a")
	b.Close()

	if b.Send("b") {
		t.Error("Send after Close should return false")
	}
	b.Requeue("c")

	if got := b.Drain(0); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Errorf("Drain = %v, want [c a]", got)
	}
}

func TestBuffer_RequeueAtHead(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		sent     []int
		drain    int
		later    []int
		want     []int
	}{
		{"ahead of newer sends", 16, []int{1, 2, 3}, 2, []int{4}, []int{1, 2, 3, 4}},
		{"wrapped ring", 4, []int{1, 2}, 2, []int{3, 4}, []int{1, 2, 3, 4}},
		{"grows while requeueing", 2, []int{1, 2, 3, 4, 5}, 5, []int{6}, []int{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer[int](tt.capacity)
			b.Send(tt.sent...)
			batch := b.Drain(tt.drain)
			b.Send(tt.later...)
			b.Requeue(batch...)

			if got := b.Drain(0); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Drain = %v, want %v", got, tt.want)
			}
			if st := b.Stats(); st.Drained != int64(len(tt.want)) {
				t.Errorf("Stats.Drained = %d, want %d", st.Drained, len(tt.want))
			}
		})
	}
}

func TestBuffer_ReadySignal(t *testing.T) {
	b := NewBuffer[int](4)

	select {
	case <-b.Ready():
		t.Fatal("ready before any send")
	default:
	}

	b.Send(1)
	b.Send(2) // coalesced into the pending signal

	select {
	case <-b.Ready():
	default:
		t.Fatal("no ready signal after send")
	}
	select {
	case <-b.Ready():
		t.Fatal("signal not coalesced")
	default:
	}
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer[int](8)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Send(i)
			}
		}()
	}

	var total int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		total += len(b.Drain(64))
		select {
		case <-done:
			total += len(b.Drain(0))
			if total != 4000 {
				t.Errorf("drained %d items, want 4000", total)
			}
			return
		default:
		}
	}
}
