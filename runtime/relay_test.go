package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"room-relay/repositories"

	"github.com/stretchr/testify/require"
)

func Test_Relay_Fires_Ready_With_The_Fixed_Room_Code(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{col: &fakeCollection{}}
	relay := NewRelay(slog.Default(), store, "abcd")

	var ready []string
	relay.OnReady(func(roomCode string) { ready = append(ready, roomCode) })

	req.NoError(relay.Start(context.Background()))
	req.Equal(Ready, relay.State())
	req.Equal([]string{"ABCD"}, ready)
	req.Equal("ABCD", relay.RoomCode())

	relay.Stop()
	req.Equal(Terminated, relay.State())
	req.True(store.closed)
}

func Test_Relay_Generates_A_Room_Code_When_Unset(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{col: &fakeCollection{}}
	relay := NewRelay(slog.Default(), store, "")

	req.NoError(relay.Start(context.Background()))
	code := relay.RoomCode()
	req.Len(code, 4)
	req.Equal(strings.ToUpper(code), code)

	relay.Stop()
}

func Test_Relay_Does_Not_Reach_Ready_On_Connect_Fault(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{connectErr: fmt.Errorf("store unreachable")}
	relay := NewRelay(slog.Default(), store, "ABCD")

	readyFired := false
	relay.OnReady(func(string) { readyFired = true })

	err := relay.Start(context.Background())
	req.Error(err)
	req.False(readyFired)
	req.NotEqual(Ready, relay.State())
}

func Test_Relay_Transitions_To_Faulted_On_Query_Fault(t *testing.T) {
	req := require.New(t)
	col := &fakeCollection{}
	store := &fakeStore{col: col}
	relay := NewRelay(slog.Default(), store, "ABCD")

	var mu sync.Mutex
	var faults []error
	relay.OnFault(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		faults = append(faults, err)
	})

	req.NoError(relay.Start(context.Background()))

	fault := fmt.Errorf("listener torn apart")
	col.at(0).query.terminate(fault)
	relay.CheckSubscription()

	req.Equal(Faulted, relay.State())
	mu.Lock()
	req.Equal([]error{fault}, faults)
	mu.Unlock()

	// No auto-reconnect: the query count stays where it was and further
	// ticks stay silent.
	relay.CheckSubscription()
	req.Equal(1, col.count())
	mu.Lock()
	req.Len(faults, 1)
	mu.Unlock()

	relay.Stop()
}

func Test_Relay_End_To_End_Over_The_Badger_Store(t *testing.T) {
	req := require.New(t)
	store := repositories.NewBadgerStore(slog.Default(), "")
	relay := NewRelay(slog.Default(), store, "ABCD")
	ctx := context.Background()

	messages := make(chan string, 16)
	relay.OnMessage(func(payload string) { messages <- payload })

	req.NoError(relay.Start(ctx))
	defer relay.Stop()

	// Give the live query time to register before producing.
	time.Sleep(200 * time.Millisecond)
	col := store.Collection()
	req.NotNil(col)

	req.NotNil(col.AppendMessage(ctx, "ABCD", "hello"))

	select {
	case payload := <-messages:
		req.Equal("hello", payload)
	case <-time.After(5 * time.Second):
		req.Fail("message was not relayed")
	}

	// Entries for another room never surface here.
	req.NotNil(col.AppendMessage(ctx, "WXYZ", "other room"))
	select {
	case payload := <-messages:
		req.Fail("unexpected delivery", payload)
	case <-time.After(300 * time.Millisecond):
	}

	// A later entry in the right room still flows after the restart
	// triggered by the first delivery.
	time.Sleep(200 * time.Millisecond)
	req.NotNil(col.AppendMessage(ctx, "ABCD", "again"))
	select {
	case payload := <-messages:
		req.Equal("again", payload)
	case <-time.After(5 * time.Second):
		req.Fail("second message was not relayed")
	}
}
