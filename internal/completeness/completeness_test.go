package completeness

import (
	"testing"
	"time"
)

func TestClassifySingletonIsComplete(t *testing.T) {
	v := Classify([]Member{{FileID: 1, Duration: 10 * time.Minute}}, DefaultRatio)
	if v.Canonical != 10*time.Minute {
		t.Fatalf("unexpected canonical: %s", v.Canonical)
	}
	if v.Incomplete[1] {
		t.Fatal("singleton must be complete")
	}
}

func TestClassifyFlagsShortRecordings(t *testing.T) {
	members := []Member{
		{FileID: 1, Duration: 3600 * time.Second},
		{FileID: 2, Duration: 3600 * time.Second},
		{FileID: 3, Duration: 1800 * time.Second},
		{FileID: 4, Duration: 3430 * time.Second},
		{FileID: 5, Duration: 3410 * time.Second},
	}
	v := Classify(members, 0.95)
	if v.Canonical != 3600*time.Second {
		t.Fatalf("unexpected canonical: %s", v.Canonical)
	}
	want := map[int64]bool{1: false, 2: false, 3: true, 4: false, 5: true}
	for id, flag := range want {
		if v.Incomplete[id] != flag {
			t.Fatalf("file %d incomplete = %v, want %v", id, v.Incomplete[id], flag)
		}
	}
}

func TestClassifyCanonicalNeverShrinks(t *testing.T) {
	members := []Member{{FileID: 1, Duration: time.Hour}}
	prev := Classify(members, DefaultRatio).Canonical
	for i, d := range []time.Duration{30 * time.Minute, 2 * time.Hour, time.Minute} {
		members = append(members, Member{FileID: int64(i + 2), Duration: d})
		next := Classify(members, DefaultRatio).Canonical
		if next < prev {
			t.Fatalf("canonical shrank from %s to %s", prev, next)
		}
		prev = next
	}
	if prev != 2*time.Hour {
		t.Fatalf("unexpected final canonical: %s", prev)
	}
}

func TestClassifyLongerArrivalFlipsEarlierMembers(t *testing.T) {
	members := []Member{{FileID: 1, Duration: 30 * time.Minute}}
	if Classify(members, DefaultRatio).Incomplete[1] {
		t.Fatal("expected lone file to be complete")
	}
	members = append(members, Member{FileID: 2, Duration: time.Hour})
	v := Classify(members, DefaultRatio)
	if !v.Incomplete[1] || v.Incomplete[2] {
		t.Fatalf("unexpected flags: %v", v.Incomplete)
	}
	changed := v.Changed(map[int64]bool{1: false, 2: false})
	if len(changed) != 1 || changed[0] != 1 {
		t.Fatalf("expected file 1 to change, got %v", changed)
	}
}

func TestClassifyInvalidRatioFallsBack(t *testing.T) {
	members := []Member{{FileID: 1, Duration: 100}, {FileID: 2, Duration: 96}, {FileID: 3, Duration: 94}}
	v := Classify(members, 2)
	if v.Incomplete[2] || !v.Incomplete[3] {
		t.Fatalf("expected default ratio, got %v", v.Incomplete)
	}
}
