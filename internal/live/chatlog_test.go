package live

import (
	"testing"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

func seqs(ms []domain.ChatMessage) []int64 {
	out := make([]int64, len(ms))
	for i, m := range ms {
		out[i] = m.Seq
	}
	return out
}

func TestChatLog_SeqAndSince(t *testing.T) {
	l := NewChatLog(10)
	for i := 0; i < 4; i++ {
		got := l.Append(domain.ChatMessage{Text: "m"})
		if got.Seq != int64(i+1) {
			t.Fatalf("seq=%d, want %d", got.Seq, i+1)
		}
	}

	if got := seqs(l.Since(2)); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("since(2)=%v, want [3 4]", got)
	}
	if got := l.Since(4); len(got) != 0 {
		t.Fatalf("since(4)=%v, want empty", seqs(got))
	}
	if got := seqs(l.Recent(3)); len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("recent(3)=%v, want [2 3 4]", got)
	}
}

func TestChatLog_TruncatesOldest(t *testing.T) {
	l := NewChatLog(3)
	for i := 0; i < 5; i++ {
		l.Append(domain.ChatMessage{Text: "m"})
	}

	if n := len(l.Recent(0)); n != 3 {
		t.Fatalf("retained=%d, want 3", n)
	}
	if l.Total() != 5 {
		t.Fatalf("total=%d, want 5", l.Total())
	}
	if got := seqs(l.Since(0)); len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("since(0)=%v, want [3 4 5]", got)
	}
	if got := seqs(l.Since(4)); len(got) != 1 || got[0] != 5 {
		t.Fatalf("since(4)=%v, want [5]", got)
	}
}

func TestChatLog_SnapshotIsCopy(t *testing.T) {
	l := NewChatLog(5)
	l.Append(domain.ChatMessage{Text: "first"})

	got := l.Since(0)
	got[0].Text = "changed"

	if l.Since(0)[0].Text != "first" {
		t.Fatalf("stored message mutated through snapshot")
	}
}
