package bus

import (
	"testing"
	"time"

	"overlaybox/src/events"
)

func TestSubscribeFiltersByTopic(t *testing.T) {
	b := New()
	defer b.Close()

	ocr := b.Subscribe(4, events.TopicOCRComplete)
	all := b.Subscribe(4)

	b.Publish(events.CaptureComplete{Path: "/tmp/x.png"})
	b.Publish(events.OCRComplete{Text: "hello"})

	select {
	case ev := <-ocr:
		if ev.Topic() != events.TopicOCRComplete {
			t.Fatalf("Expected OCRComplete on filtered channel, got %s", ev.Topic())
		}
	case <-time.After(time.Second):
		t.Fatal("Expected OCRComplete delivery")
	}
	select {
	case ev := <-ocr:
		t.Fatalf("Did not expect second event on filtered channel, got %s", ev.Topic())
	default:
	}

	got := 0
	for i := 0; i < 2; i++ {
		select {
		case <-all:
			got++
		case <-time.After(time.Second):
			t.Fatalf("Expected 2 events on unfiltered channel, got %d", got)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.Subscribe(1, events.TopicShowWidget)
	b.Publish(events.ShowWidget{})
	b.Publish(events.ShowWidget{}) // must not block

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected first event to be buffered")
	}
	select {
	case <-ch:
		t.Fatal("Second event should have been dropped")
	default:
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("Expected subscriber channel to be closed")
	}
	// Publishing after close must not panic.
	b.Publish(events.ShowWidget{})
}
