package chat

import (
	"sync"
	"testing"
	"time"
)

func TestTrySendAfterCloseReturnsFalse(t *testing.T) {
	c := NewClient("c1", "u1", nil, 4)
	if !c.TrySend([]byte("x")) {
		t.Fatal("send to open queue failed")
	}
	c.CloseSend()
	if c.TrySend([]byte("y")) {
		t.Error("send to closed queue must report false")
	}
	c.CloseSend() // second close is a no-op
}

func TestTrySendConcurrentWithClose(t *testing.T) {
	c := NewClient("c1", "u1", nil, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.TrySend([]byte("x"))
			}
		}()
	}
	c.CloseSend()
	wg.Wait()
}

// A disconnect racing a broadcast: the fanout workers deliver to a
// registry snapshot taken before the teardown ran. The departed
// connection simply misses the frame; everyone else still gets it.
func TestBroadcastToSnapshotSurvivesDisconnect(t *testing.T) {
	reg := NewRegistry()
	a := NewClient("c-a", "u-a", nil, 4)
	b := NewClient("c-b", "u-b", nil, 4)
	reg.Register(a)
	reg.Register(b)

	snapshot := reg.ListAll()

	// Teardown sequence for a, after the snapshot was taken.
	reg.Unregister(a.ConnID)
	a.CloseSend()

	NewFanout(2, 8).Broadcast(snapshot, []byte(`payload`))

	select {
	case got := <-b.Send:
		if string(got) != "payload" {
			t.Errorf("delivered %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("live connection missed the broadcast")
	}
}
