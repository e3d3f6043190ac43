package buffer

import (
	"sync"
	"testing"
	"time"

	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/logger"
)

func init() {
	logger.InitLogger("test")
}

func TestRevisionBuffer_Lifecycle(t *testing.T) {
	buf := NewRevisionBuffer(3)

	// empty buffer means the client is already up to date
	msgs, ok := buf.GetSince(0)
	if !ok || len(msgs) != 0 {
		t.Error("empty buffer should return empty slice and ok=true")
	}

	buf.AddMessage(v1.Message{Revision: 1})
	buf.AddMessage(v1.Message{Revision: 2})
	buf.AddMessage(v1.Message{Revision: 3})

	// buffer [1,2,3] cannot prove continuity from rev 0, must resync
	msgs, ok = buf.GetSince(0)
	if ok {
		t.Error("GetSince(0) should fail because 0 < oldestRev(1)")
	}

	// wrap around, logical contents become [2, 3, 4]
	buf.AddMessage(v1.Message{Revision: 4})

	msgs, ok = buf.GetSince(1)
	if ok {
		t.Error("GetSince(1) should fail because 1 < oldestRev(2)")
	}

	msgs, ok = buf.GetSince(2)
	if !ok {
		t.Error("GetSince(2) should be valid")
	}
	if len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Revision != 3 || msgs[1].Revision != 4 {
		t.Errorf("expected [3, 4], got [%d, %d]", msgs[0].Revision, msgs[1].Revision)
	}

	msgs, ok = buf.GetSince(4)
	if !ok {
		t.Error("GetSince(4) should be valid")
	}
	if len(msgs) != 0 {
		t.Errorf("expected 0 messages, got %d", len(msgs))
	}
}

func TestRevisionBuffer_Concurrency(t *testing.T) {
	buf := NewRevisionBuffer(1000)
	done := make(chan struct{})
	count := 5000

	go func() {
		for i := 1; i <= count; i++ {
			buf.AddMessage(v1.Message{Revision: int64(i)})
			time.Sleep(2 * time.Microsecond)
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var lastRev int64 = 0
			timeout := time.After(5 * time.Second)

			for {
				select {
				case <-done:
					return
				case <-timeout:
					t.Error("test timed out")
					return
				default:
					msgs, ok := buf.GetSince(lastRev)
					if ok && len(msgs) > 0 {
						lastRev = msgs[len(msgs)-1].Revision
					}
					// on !ok a real client would fetch a snapshot
				}
			}
		}(i)
	}

	wg.Wait()
}
