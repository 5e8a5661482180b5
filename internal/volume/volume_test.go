package volume

import "testing"

func TestCoalesceDropsEarlierEventForSamePath(t *testing.T) {
	queue := []event{
		{action: added, path: "/media/a"},
		{action: added, path: "/media/b"},
	}
	queue = coalesce(queue, event{action: removed, path: "/media/a"})

	if len(queue) != 2 {
		t.Fatalf("expected 2 events after coalescing, got %d: %+v", len(queue), queue)
	}
	if queue[0].path != "/media/b" {
		t.Errorf("expected /media/b to remain first, got %+v", queue)
	}
	if queue[1].action != removed || queue[1].path != "/media/a" {
		t.Errorf("expected latest-wins removed event for /media/a at the end, got %+v", queue[1])
	}
}

func TestCoalesceKeepsDistinctPaths(t *testing.T) {
	var queue []event
	queue = coalesce(queue, event{action: added, path: "/media/a"})
	queue = coalesce(queue, event{action: added, path: "/media/b"})
	if len(queue) != 2 {
		t.Fatalf("expected 2 distinct events, got %d", len(queue))
	}
}
