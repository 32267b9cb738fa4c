package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tasksync/internal/models"
)

// setupMongoStore connects to MONGODB_URI using a throwaway database.
func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	database := fmt.Sprintf("tasksync_test_%d", time.Now().UnixNano())
	s, err := NewMongoStore(context.Background(), uri, database)
	if err != nil {
		t.Fatalf("failed to connect to mongodb: %v", err)
	}
	t.Cleanup(func() {
		_ = s.collection.Database().Drop(context.Background())
		s.Close()
	})
	return s
}

func TestMongoStore_CRUD(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	task := &models.Task{Text: "  Buy milk  "}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if task.Text != "Buy milk" {
		t.Errorf("expected trimmed text, got %q", task.Text)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Text != "Buy milk" || got.Completed {
		t.Errorf("unexpected task %+v", got)
	}

	updated, err := s.UpdateTask(ctx, task.ID, models.SetCompleted(true))
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if !updated.Completed {
		t.Error("expected task to be completed")
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMongoStore_ListSearchesAndPaginates(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"alpha", "beta", "Alphabet", "a.b"} {
		if err := s.CreateTask(ctx, &models.Task{Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("CreateTask(%q) failed: %v", text, err)
		}
	}

	result, err := s.ListTasks(ctx, models.ListOptions{Search: "ALPHA", Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Total)
	}
	if len(result.Items) != 1 || result.Items[0].Text != "Alphabet" {
		t.Errorf("expected newest match first, got %+v", result.Items)
	}

	result, err = s.ListTasks(ctx, models.ListOptions{Search: "."})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if result.Total != 1 || result.Items[0].Text != "a.b" {
		t.Errorf("expected literal dot match only, got %+v", result.Items)
	}
}

func TestMongoStore_MissingIDs(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()
	missing := primitive.NewObjectID().Hex()

	if _, err := s.GetTask(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask: expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateTask(ctx, missing, models.SetCompleted(true)); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTask: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTask(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTask: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTask(ctx, "not-an-object-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTask invalid id: expected ErrNotFound, got %v", err)
	}
}
