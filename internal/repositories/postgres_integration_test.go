package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorebreak/backend/internal/auth"
	"github.com/shorebreak/backend/internal/friends"
	"github.com/shorebreak/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Username:  "alice2",
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if fetched.ID != user.ID || fetched.Email != user.Email || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}
	if len(fetched.Friends) != 0 || len(fetched.FriendRequests) != 0 {
		t.Fatalf("expected empty relationship projections, got %+v", fetched)
	}

	updated := user
	updated.Username = "alice-updated"
	updated.AvatarURL = "https://cdn.example.com/a.png"
	updated.UpdatedAt = time.Now().UTC().Add(time.Minute)

	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update user: %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Username != updated.Username || fetched.AvatarURL != updated.AvatarURL {
		t.Fatalf("expected updated fields to persist, got %+v", fetched)
	}

	missing := models.User{ID: uuid.NewString(), Username: "ghost", Email: "ghost@example.com", UpdatedAt: time.Now().UTC()}
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresUserRepository_Summaries(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	a := createTestUser(t, repo, "zoe", "zoe@example.com")
	b := createTestUser(t, repo, "adam", "adam@example.com")

	summaries, err := repo.Summaries(ctx, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	// Ordered by username.
	if summaries[0].Username != "adam" || summaries[1].Username != "zoe" {
		t.Fatalf("unexpected order: %+v", summaries)
	}
}

func TestPostgresGraphStore_FriendPrimitives(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	store := NewPostgresGraphStore(testPool)

	a := createTestUser(t, users, "alice", "alice@example.com")
	b := createTestUser(t, users, "bob", "bob@example.com")

	if err := store.AddFriend(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	// Re-adding the same id must not duplicate the entry.
	if err := store.AddFriend(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("idempotent add friend: %v", err)
	}

	rec, err := store.Record(ctx, a.ID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if len(rec.Friends) != 1 || rec.Friends[0] != b.ID {
		t.Fatalf("expected single friend entry, got %v", rec.Friends)
	}

	// Self-edges are refused at the statement level.
	if err := store.AddFriend(ctx, a.ID, a.ID); err != nil {
		t.Fatalf("self add friend: %v", err)
	}
	rec, _ = store.Record(ctx, a.ID)
	if len(rec.Friends) != 1 {
		t.Fatalf("expected self edge to be ignored, got %v", rec.Friends)
	}

	if err := store.RemoveFriend(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("remove friend: %v", err)
	}
	if err := store.RemoveFriend(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("idempotent remove friend: %v", err)
	}
	rec, _ = store.Record(ctx, a.ID)
	if len(rec.Friends) != 0 {
		t.Fatalf("expected no friends after removal, got %v", rec.Friends)
	}

	if _, err := store.Record(ctx, uuid.NewString()); !errors.Is(err, friends.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown id, got %v", err)
	}
}

func TestPostgresGraphStore_RequestPrimitives(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	store := NewPostgresGraphStore(testPool)

	a := createTestUser(t, users, "alice", "alice@example.com")
	b := createTestUser(t, users, "bob", "bob@example.com")
	c := createTestUser(t, users, "carol", "carol@example.com")

	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.AddRequest(ctx, b.ID, a.ID, now); err != nil {
		t.Fatalf("add request: %v", err)
	}
	// A second request from the same sender must not create a second entry.
	if err := store.AddRequest(ctx, b.ID, a.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("idempotent add request: %v", err)
	}
	if err := store.AddRequest(ctx, b.ID, c.ID, now.Add(time.Minute)); err != nil {
		t.Fatalf("add second request: %v", err)
	}

	rec, err := store.Record(ctx, b.ID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if len(rec.Requests) != 2 {
		t.Fatalf("expected 2 pending requests, got %+v", rec.Requests)
	}
	if !rec.HasRequestFrom(a.ID) || !rec.HasRequestFrom(c.ID) {
		t.Fatalf("missing expected requests: %+v", rec.Requests)
	}

	sent, err := store.SentRequests(ctx, a.ID)
	if err != nil {
		t.Fatalf("sent requests: %v", err)
	}
	if len(sent) != 1 || sent[0].To != b.ID {
		t.Fatalf("unexpected sent requests: %+v", sent)
	}
	if !timesClose(sent[0].CreatedAt, now, time.Second) {
		t.Fatalf("expected original createdAt to survive, got %v want %v", sent[0].CreatedAt, now)
	}

	if err := store.RemoveRequest(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("remove request: %v", err)
	}
	if err := store.RemoveRequest(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("idempotent remove request: %v", err)
	}

	rec, _ = store.Record(ctx, b.ID)
	if len(rec.Requests) != 1 || rec.Requests[0].From != c.ID {
		t.Fatalf("expected only carol's request to remain, got %+v", rec.Requests)
	}
}

func TestPostgresGraphStore_Purge(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	store := NewPostgresGraphStore(testPool)

	a := createTestUser(t, users, "alice", "alice@example.com")
	b := createTestUser(t, users, "bob", "bob@example.com")
	c := createTestUser(t, users, "carol", "carol@example.com")

	now := time.Now().UTC()
	if err := store.AddFriend(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := store.AddRequest(ctx, c.ID, a.ID, now); err != nil {
		t.Fatalf("add request: %v", err)
	}

	if err := store.Purge(ctx, a.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	bRec, _ := store.Record(ctx, b.ID)
	if bRec.HasFriend(a.ID) {
		t.Fatalf("expected purged id removed from friends, got %v", bRec.Friends)
	}
	cRec, _ := store.Record(ctx, c.ID)
	if cRec.HasRequestFrom(a.ID) {
		t.Fatalf("expected purged id removed from requests, got %+v", cRec.Requests)
	}
}

func TestPostgresSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresSessionStore(testPool)

	session := auth.Session{
		Token:     uuid.NewString(),
		UserID:    uuid.NewString(),
		Kind:      auth.KindAccess,
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond),
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	fetched, err := store.Find(ctx, session.Token)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if fetched.UserID != session.UserID || fetched.Kind != session.Kind {
		t.Fatalf("unexpected session: %+v", fetched)
	}

	if err := store.DeleteForUser(ctx, session.UserID); err != nil {
		t.Fatalf("delete for user: %v", err)
	}
	if _, err := store.Find(ctx, session.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revocation, got %v", err)
	}
}

func TestPostgresPostRepository_FeedAndComments(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	repo := NewPostgresPostRepository(testPool)

	a := createTestUser(t, users, "alice", "alice@example.com")
	b := createTestUser(t, users, "bob", "bob@example.com")
	c := createTestUser(t, users, "carol", "carol@example.com")

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, author := range []string{a.ID, b.ID, c.ID} {
		post := models.Post{
			ID:        uuid.NewString(),
			AuthorID:  author,
			Title:     fmt.Sprintf("post %d", i),
			Body:      "body",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreatePost(ctx, post); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	feed, err := repo.ListFeed(ctx, []string{a.ID, b.ID}, 10, 0)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected feed scoped to 2 authors, got %d posts", len(feed))
	}
	if feed[0].AuthorID != b.ID {
		t.Fatalf("expected newest post first, got %+v", feed)
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    feed[0].ID,
		AuthorID:  c.ID,
		Body:      "nice one",
		CreatedAt: now.Add(time.Hour),
	}
	if err := repo.CreateComment(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	comments, err := repo.ListComments(ctx, feed[0].ID, 10, 0)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Body != "nice one" {
		t.Fatalf("unexpected comments: %+v", comments)
	}

	if err := repo.DeletePost(ctx, feed[0].ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another author's post, got %v", err)
	}
	if err := repo.DeletePost(ctx, feed[0].ID, b.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE comments, posts, sessions, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username, email string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
