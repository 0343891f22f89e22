package iso15765

import "testing"

func TestRegistryByPatternFirstMatchWins(t *testing.T) {
	r := newRegistry()
	wide := r.add(0x700, 0x700, 0x701, nil)
	_ = r.add(0x7FF, 0x700, 0x701, nil)

	got := r.byPattern(0x700)
	if got != wide {
		t.Fatalf("expected first-registered overlapping filter to win")
	}
}

func TestRegistryByFlowControl(t *testing.T) {
	r := newRegistry()
	e := r.add(0x7FF, 0x700, 0x701, nil)
	if r.byFlowControl(0x701) != e {
		t.Fatalf("expected lookup by flow control id to find entry")
	}
	if r.byFlowControl(0x702) != nil {
		t.Fatalf("expected no match for unregistered flow control id")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry()
	e := r.add(0x7FF, 0x700, 0x701, nil)
	if !r.remove(e) {
		t.Fatalf("expected remove to report success")
	}
	if r.byPattern(0x700) != nil {
		t.Fatalf("expected entry gone after remove")
	}
	if r.remove(e) {
		t.Fatalf("expected second remove of the same entry to report failure")
	}
}

func TestRegistryClear(t *testing.T) {
	r := newRegistry()
	r.add(0x7FF, 0x700, 0x701, "handle-a")
	r.add(0x7FF, 0x710, 0x711, "handle-b")
	handles := r.clear()
	if len(handles) != 2 {
		t.Fatalf("expected 2 released handles, got %d", len(handles))
	}
	if r.byPattern(0x700) != nil || r.byPattern(0x710) != nil {
		t.Fatalf("expected registry empty after clear")
	}
}
