package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"blog/cache"
	"blog/db/dbtest"
	"blog/media"
	"blog/models"
	"blog/store"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	store    *store.Store
	clock    *fakeClock
	index    *cache.MemoryCache
	storage  *media.LocalStorage
	feeds    *FeedService
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	groups   *GroupService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.New(dbtest.Open(t))
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	storage, err := media.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	index := cache.NewMemoryCache().WithClock(clock.Now)
	pageCache := cache.NewPageCache("index", index)
	return &testEnv{
		store:    st,
		clock:    clock,
		index:    index,
		storage:  storage,
		feeds:    NewFeedService(st, pageCache, storage, FeedOptions{PageSize: 10, IndexTTL: 20 * time.Second}),
		posts:    NewPostService(st, storage, nil),
		comments: NewCommentService(st),
		follows:  NewFollowService(st),
		groups:   NewGroupService(st),
		auth:     NewAuthService(st),
	}
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "unused"}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(t, e.store.CreateGroup(context.Background(), g))
	return g
}

func (e *testEnv) post(t *testing.T, author *models.User, text string) *models.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), author, PostInput{Text: text})
	require.NoError(t, err)
	return p
}

func pngUpload(t *testing.T) *media.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return &media.Upload{Filename: "small.png", Data: buf.Bytes()}
}

func texts(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}

func int64Ptr(v int64) *int64 {
	return &v
}
