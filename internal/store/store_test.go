package store_test

import (
	"context"
	"errors"
	"testing"

	"ai-werewolf/internal/store"
	"ai-werewolf/internal/testutil"
)

func TestLLMConfigRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.GetLLMConfig(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	cfg := &store.LLMConfig{
		BaseURL: "https://api.example.com/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Models:  []string{"gpt-4o-mini", "gpt-4o"},
	}
	if err := st.SaveLLMConfig(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.GetLLMConfig(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BaseURL != cfg.BaseURL || got.Model != cfg.Model || len(got.Models) != 2 {
		t.Fatalf("got = %+v", got)
	}

	cfg.Model = "gpt-4o"
	if err := st.SaveLLMConfig(ctx, cfg); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = st.GetLLMConfig(ctx)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Model != "gpt-4o" {
		t.Fatalf("model = %s", got.Model)
	}
}

func TestGameStateOptimisticVersioning(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.GetGameState(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	v1, err := st.SaveGameState(ctx, []byte(`{"day":1}`), 0)
	if err != nil {
		t.Fatalf("initial save: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("version = %d, want 1", v1)
	}

	// A save carrying a stale version must not overwrite.
	if _, err := st.SaveGameState(ctx, []byte(`{"day":9}`), 0); !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	v2, err := st.SaveGameState(ctx, []byte(`{"day":2}`), v1)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("version = %d, want 2", v2)
	}
	got, err := st.GetGameState(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 || string(got.State) != `{"day":2}` {
		t.Fatalf("got = %+v", got)
	}

	if err := st.DeleteGameState(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetGameState(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err after delete = %v", err)
	}
}

func TestGameHistoryLifecycle(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	id := store.NewID()
	entry := &store.GameHistoryEntry{
		GameID:         id,
		Status:         store.GameStatusInProgress,
		CheckpointJSON: []byte(`{"phase":"NIGHT"}`),
	}
	if err := st.UpsertGameHistory(ctx, entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entry.Status = store.GameStatusCompleted
	if err := st.UpsertGameHistory(ctx, entry); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	got, err := st.GetGameHistory(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.GameStatusCompleted || string(got.CheckpointJSON) != `{"phase":"NIGHT"}` {
		t.Fatalf("got = %+v", got)
	}

	list, err := st.ListGameHistory(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].GameID != id {
		t.Fatalf("list = %+v", list)
	}

	if err := st.DeleteGameHistory(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteGameHistory(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestGameAnalysisUpsert(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.GetGameAnalysis(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := st.UpsertGameAnalysis(ctx, "g1", []byte(`{"result":"wolf_win"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.UpsertGameAnalysis(ctx, "g1", []byte(`{"result":"village_win"}`)); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	got, err := st.GetGameAnalysis(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.ReportJSON) != `{"result":"village_win"}` {
		t.Fatalf("report = %s", got.ReportJSON)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.GetMeta(ctx, "schema_rev"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := st.SetMeta(ctx, "schema_rev", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.SetMeta(ctx, "schema_rev", "2"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	v, err := st.GetMeta(ctx, "schema_rev")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "2" {
		t.Fatalf("value = %s", v)
	}
}
