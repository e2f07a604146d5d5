package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)

	ch := c.After(30 * time.Millisecond)
	require.Equal(t, 1, c.PendingCount())

	c.Advance(29 * time.Millisecond)

	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(time.Millisecond)

	select {
	case fired := <-ch:
		require.Equal(t, epoch.Add(30*time.Millisecond), fired)
	default:
		t.Fatal("did not fire at deadline")
	}

	require.Equal(t, 0, c.PendingCount())
}

func TestFake_NonPositiveDurationFiresImmediately(t *testing.T) {
	c := Fake(epoch)

	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}

	select {
	case <-c.After(-time.Second):
	default:
		t.Fatal("After(<0) should fire immediately")
	}

	require.Equal(t, 0, c.PendingCount())
}

func TestFake_WaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})

	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine was not released by Advance")
	}
}

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)

	late := c.After(20 * time.Millisecond)
	early := c.After(10 * time.Millisecond)

	c.Advance(15 * time.Millisecond)

	require.Len(t, early, 1)
	require.Empty(t, late)

	c.Advance(5 * time.Millisecond)
	require.Len(t, late, 1)
}

func TestReal_Now(t *testing.T) {
	before := time.Now()
	now := Real().Now()

	require.False(t, now.Before(before))
}
