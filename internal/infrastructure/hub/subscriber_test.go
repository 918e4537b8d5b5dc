package hub

import "testing"

func TestSubscriber_OfferKeepsNewest(t *testing.T) {
	sub := newSubscriber(1, 3)

	for _, p := range []string{"1", "2", "3", "4", "5"} {
		if !sub.offer([]byte(p)) {
			t.Fatalf("offer %s failed without contention", p)
		}
		if sub.Len() > sub.Cap() {
			t.Fatalf("queue length %d exceeds capacity %d", sub.Len(), sub.Cap())
		}
	}

	for _, want := range []string{"3", "4", "5"} {
		if got := string(<-sub.Events()); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestSubscriber_OfferAfterDrainIsFIFO(t *testing.T) {
	sub := newSubscriber(1, 2)

	sub.offer([]byte("a"))
	<-sub.Events()
	sub.offer([]byte("b"))
	sub.offer([]byte("c"))

	if got := string(<-sub.Events()); got != "b" {
		t.Errorf("Expected b, got %s", got)
	}
	if got := string(<-sub.Events()); got != "c" {
		t.Errorf("Expected c, got %s", got)
	}
}

func TestSubscriber_CloseIsIdempotent(t *testing.T) {
	sub := newSubscriber(1, 1)
	sub.close()
	sub.close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed")
	}
}
