package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/rosterhub-backend/api/routes"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/auth"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

func startAPI(t *testing.T) (notifications.Service, string, string) {
	t.Helper()
	svc, url, token, _ := startAPIWithHub(t)
	return svc, url, token
}

func startAPIWithHub(t *testing.T) (notifications.Service, string, string, *realtime.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  category TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  metadata TEXT,
  read_at DATETIME,
  created_at DATETIME NOT NULL
);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	svc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	cfg := &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "cli-secret", Issuer: "rosterhub-identity", ExpirationMinutes: 5},
		Realtime: config.RealtimeConfig{PingInterval: time.Minute, SendBuffer: 8},
	}
	hub := realtime.NewHub(logger.Nop(), nil)
	router := routes.NewRouter(cfg, logger.Nop(), nil, nil, nil, svc, nil, nil, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	token, err := auth.MintIdentityToken(cfg.JWT, time.Now(), auth.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return svc, server.URL, token, hub
}

func seed(t *testing.T, svc notifications.Service, titles ...string) []*models.Notification {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]*models.Notification, 0, len(titles))
	for i, title := range titles {
		row, err := svc.Insert(context.Background(), &models.Notification{
			OwnerID:   "user-1",
			Category:  enums.NotificationCategoryProfile,
			Title:     title,
			Body:      "body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestRunListPrintsFeed(t *testing.T) {
	svc, url, token := startAPI(t)
	seed(t, svc, "older", "newer")

	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"--api", url, "--token", token, "list"}, &out, &errOut); err != nil {
		t.Fatalf("run list: %v (%s)", err, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two items and a count, got %q", out.String())
	}
	if !strings.Contains(lines[0], "newer") || !strings.Contains(lines[1], "older") {
		t.Fatalf("expected newest first, got %q", out.String())
	}
	if lines[2] != "unread: 2" {
		t.Fatalf("unexpected count line %q", lines[2])
	}
}

// syncBuffer lets the test read output while tail is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in %q", want, out.String())
}

func TestRunTailPrintsPushedNotifications(t *testing.T) {
	svc, url, token, hub := startAPIWithHub(t)
	seed(t, svc, "existing")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, errOut := &syncBuffer{}, &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"--api", url, "--token", token, "tail"}, out, errOut) }()

	waitForOutput(t, out, "unread: 1")

	pushed := notifications.Item{
		ID:        uuid.Must(uuid.NewV7()),
		OwnerID:   "user-1",
		Category:  enums.NotificationCategoryTransfer,
		Title:     "Offer received",
		Body:      "Team X made an offer",
		CreatedAt: time.Now().UTC(),
	}
	if err := hub.Publish(context.Background(), pushed); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitForOutput(t, out, "Offer received")
	waitForOutput(t, out, "unread: 2")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("tail returned %v (%s)", err, errOut.String())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tail did not stop after cancel")
	}
}

func TestRunReadAndReadAll(t *testing.T) {
	svc, url, token := startAPI(t)
	rows := seed(t, svc, "a", "b", "c")

	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"--api", url, "--token", token, "read", rows[0].ID.String()}, &out, &errOut); err != nil {
		t.Fatalf("run read: %v", err)
	}
	count, err := svc.UnreadCount(context.Background(), "user-1")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 unread after read, got %d (%v)", count, err)
	}

	out.Reset()
	if err := run(context.Background(), []string{"--api", url, "--token", token, "read-all"}, &out, &errOut); err != nil {
		t.Fatalf("run read-all: %v", err)
	}
	if strings.TrimSpace(out.String()) != "marked 2 read" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	cases := [][]string{
		{},
		{"--token", "t", "explode"},
		{"--token", "t", "read"},
	}
	for _, args := range cases {
		if err := run(context.Background(), args, &out, &errOut); !errors.Is(err, errUsage) {
			t.Fatalf("expected usage error for %v, got %v", args, err)
		}
	}
}

func TestRunRequiresToken(t *testing.T) {
	t.Setenv("ROSTERHUB_TOKEN", "")
	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"list"}, &out, &errOut); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestRunRejectsBadID(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"--token", "t", "delete", "nope"}, &out, &errOut)
	if err == nil || errors.Is(err, errUsage) {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}
