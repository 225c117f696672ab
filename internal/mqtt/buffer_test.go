package mqtt

import (
	"testing"
)

func msg(b byte) outbound {
	return outbound{topic: TopicSystem, payload: []byte{b}}
}

func payloads(msgs []outbound) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestRingTakeEmpty(t *testing.T) {
	r := newRing[outbound](10)
	got, lost := r.take()
	if got != nil || lost != 0 {
		t.Errorf("empty take: got %d items, %d lost", len(got), lost)
	}
}

func TestRingKeepsOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		push     int
		want     []byte
		lost     int
	}{
		{"partial", 10, 5, []byte{0, 1, 2, 3, 4}, 0},
		{"exactly full", 4, 4, []byte{0, 1, 2, 3}, 0},
		{"overflow keeps newest", 5, 8, []byte{3, 4, 5, 6, 7}, 3},
		{"wraps twice", 3, 8, []byte{5, 6, 7}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRing[outbound](tt.capacity)
			for i := range tt.push {
				r.put(msg(byte(i)))
			}
			got, lost := r.take()
			if string(payloads(got)) != string(tt.want) {
				t.Errorf("payloads: got %v, want %v", payloads(got), tt.want)
			}
			if lost != tt.lost {
				t.Errorf("lost: got %d, want %d", lost, tt.lost)
			}
			if again, _ := r.take(); again != nil {
				t.Errorf("second take: got %d items", len(again))
			}
		})
	}
}

func TestRingReuseAfterTake(t *testing.T) {
	r := newRing[outbound](5)
	for i := range 7 {
		r.put(msg(byte(i)))
	}
	r.take()

	for i := byte(10); i < 14; i++ {
		r.put(msg(i))
	}
	got, lost := r.take()
	if string(payloads(got)) != string([]byte{10, 11, 12, 13}) {
		t.Errorf("payloads: got %v", payloads(got))
	}
	if lost != 0 {
		t.Errorf("lost should reset on take, got %d", lost)
	}
}

func TestRingLen(t *testing.T) {
	r := newRing[outbound](2)
	if r.len() != 0 || r.cap() != 2 {
		t.Fatalf("new ring: len %d cap %d", r.len(), r.cap())
	}
	r.put(msg(1))
	r.put(msg(2))
	r.put(msg(3))
	if r.len() != 2 {
		t.Errorf("len: got %d, want 2", r.len())
	}
	r.take()
	if r.len() != 0 {
		t.Errorf("len after take: got %d, want 0", r.len())
	}
}

func TestRingPreservesFields(t *testing.T) {
	r := newRing[outbound](1)
	r.put(outbound{topic: TopicSystem, payload: []byte(`{"test":true}`), qos: 1, retained: true})

	got, _ := r.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("got %+v", m)
	}
}

func TestRingReportsFirstEviction(t *testing.T) {
	r := newRing[outbound](2)
	if r.put(msg(0)) || r.put(msg(1)) {
		t.Fatal("no eviction expected below capacity")
	}
	if !r.put(msg(2)) {
		t.Error("first eviction should be reported")
	}
	if r.put(msg(3)) {
		t.Error("later evictions should not be reported again")
	}

	r.take()
	r.put(msg(4))
	r.put(msg(5))
	if !r.put(msg(6)) {
		t.Error("eviction after take should be reported again")
	}
}
