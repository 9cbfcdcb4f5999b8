package textgroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAggregatorJoinsBurst(t *testing.T) {
	flushed := make(chan Batch, 4)
	a := New(Options{
		Debounce: 30 * time.Millisecond,
		OnFlush:  func(b Batch) { flushed <- b },
	})

	a.Add(Item{ChatID: 1, UserID: 7, Username: "ana", Text: `{"subject":`})
	a.Add(Item{ChatID: 1, UserID: 7, Text: `"woman"}`})
	a.Add(Item{ChatID: 2, UserID: 7, Text: `{}`})
	a.Add(Item{ChatID: 1, UserID: 7, Text: "  "})
	assert.Equal(t, 2, a.Pending())

	got := map[int64]Batch{}
	for range 2 {
		select {
		case b := <-flushed:
			got[b.ChatID] = b
		case <-time.After(time.Second):
			t.Fatal("batch was not flushed")
		}
	}

	require.Contains(t, got, int64(1))
	assert.Equal(t, `{"subject":"woman"}`, got[1].Text())
	assert.Equal(t, "ana", got[1].Username)
	assert.Len(t, got[1].Parts, 2)
	assert.Equal(t, `{}`, got[2].Text())
	assert.Equal(t, 0, a.Pending())
}

func TestAggregatorDebounceRestarts(t *testing.T) {
	flushed := make(chan Batch, 2)
	a := New(Options{
		Debounce: 60 * time.Millisecond,
		OnFlush:  func(b Batch) { flushed <- b },
	})

	a.Add(Item{ChatID: 1, UserID: 1, Text: "a"})
	time.Sleep(30 * time.Millisecond)
	a.Add(Item{ChatID: 1, UserID: 1, Text: "b"})

	select {
	case b := <-flushed:
		assert.Equal(t, "ab", b.Text())
	case <-time.After(time.Second):
		t.Fatal("batch was not flushed")
	}

	select {
	case b := <-flushed:
		t.Fatalf("unexpected second flush: %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAggregatorClose(t *testing.T) {
	called := make(chan struct{}, 1)
	a := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(Batch) { called <- struct{}{} },
	})

	a.Add(Item{ChatID: 1, UserID: 1, Text: "x"})
	a.Close()
	a.Add(Item{ChatID: 1, UserID: 1, Text: "y"})
	assert.Equal(t, 0, a.Pending())

	select {
	case <-called:
		t.Fatal("flush after close")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestAggregatorIgnoresReplacedTimer(t *testing.T) {
	flushed := make(chan Batch, 2)
	a := New(Options{
		Debounce: time.Hour,
		OnFlush:  func(b Batch) { flushed <- b },
	})
	defer a.Close()

	a.Add(Item{ChatID: 1, UserID: 7, Text: "a"})
	a.Add(Item{ChatID: 1, UserID: 7, Text: "b"})
	key := makeKey(1, 7)

	// A callback from the first timer that lost the race with the second Add.
	a.flush(key, 1)
	assert.Equal(t, 1, a.Pending())
	assert.Empty(t, flushed)

	a.flush(key, 2)
	require.Len(t, flushed, 1)
	assert.Equal(t, "ab", (<-flushed).Text())
	assert.Equal(t, 0, a.Pending())
}
