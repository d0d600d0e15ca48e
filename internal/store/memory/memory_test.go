package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/finclaw/internal/store"
	"github.com/user/finclaw/internal/types"
)

func TestResolveThreadCreates(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := types.OwnerID("owner-1")

	thread, err := st.ResolveThread(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if thread.ID == "" {
		t.Fatal("expected a thread ID")
	}
	if thread.Title != types.DefaultThreadTitle {
		t.Errorf("unexpected title: %q", thread.Title)
	}
	if thread.Context != types.ContextAll {
		t.Errorf("unexpected context: %q", thread.Context)
	}

	again, err := st.ResolveThread(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != thread.ID {
		t.Errorf("resolve should reuse the existing thread")
	}
}

func TestResolveThreadPicksMostRecent(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := types.OwnerID("owner-1")

	old := &types.Thread{OwnerID: owner}
	if err := st.CreateThread(ctx, old); err != nil {
		t.Fatal(err)
	}
	fresh := &types.Thread{OwnerID: owner}
	if err := st.CreateThread(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	if err := st.TouchThread(ctx, owner, fresh.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := st.ResolveThread(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != fresh.ID {
		t.Errorf("expected most recently touched thread, got %s", got.ID)
	}
}

func TestTouchThreadMonotonic(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := types.OwnerID("owner-1")

	thread := &types.Thread{OwnerID: owner}
	if err := st.CreateThread(ctx, thread); err != nil {
		t.Fatal(err)
	}

	later := time.Now().Add(time.Hour)
	if err := st.TouchThread(ctx, owner, thread.ID, later); err != nil {
		t.Fatal(err)
	}
	if err := st.TouchThread(ctx, owner, thread.ID, later.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetThread(ctx, owner, thread.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastMessageAt.Equal(later) {
		t.Errorf("last_message_at moved backwards: %v", got.LastMessageAt)
	}
}

func TestOwnerScoping(t *testing.T) {
	st := New()
	ctx := context.Background()

	thread := &types.Thread{OwnerID: "owner-1"}
	if err := st.CreateThread(ctx, thread); err != nil {
		t.Fatal(err)
	}

	if _, err := st.GetThread(ctx, "owner-2", thread.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := st.DeleteThread(ctx, "owner-2", thread.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign owner must not delete, got %v", err)
	}
}

func TestRecentMessagesLimit(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := types.OwnerID("owner-1")

	thread := &types.Thread{OwnerID: owner}
	if err := st.CreateThread(ctx, thread); err != nil {
		t.Fatal(err)
	}

	base := time.Now()
	for i := 0; i < 15; i++ {
		msg := &types.Message{
			ID:        types.NewMessageID(),
			OwnerID:   owner,
			ThreadID:  thread.ID,
			Role:      types.RoleUser,
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := st.CreateMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := st.RecentMessages(ctx, owner, thread.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(recent))
	}
	if !recent[0].CreatedAt.Before(recent[9].CreatedAt) {
		t.Error("messages must be oldest-first")
	}
}

func TestCredentials(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := types.OwnerID("owner-1")

	if _, err := st.Token(ctx, owner, types.ProviderGoogle); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	token := &types.OAuthToken{
		OwnerID:     owner,
		Provider:    types.ProviderGoogle,
		AccessToken: "at",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := st.SaveToken(ctx, token); err != nil {
		t.Fatal(err)
	}

	ok, err := st.Connected(ctx, owner, types.ProviderGoogle)
	if err != nil || !ok {
		t.Fatalf("expected connected, got %v %v", ok, err)
	}
	got, err := st.Token(ctx, owner, types.ProviderGoogle)
	if err != nil || got.AccessToken != "at" {
		t.Fatalf("unexpected token: %+v %v", got, err)
	}
}
