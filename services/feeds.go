package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blog/cache"
	"blog/media"
	"blog/models"
	"blog/store"
)

const (
	IndexPageKeyPrefix = "index_page"
	DefaultIndexTTL    = 20 * time.Second
)

func IndexPageKey(page int) string {
	return fmt.Sprintf("%s:%d", IndexPageKeyPrefix, page)
}

type FeedOptions struct {
	PageSize int
	IndexTTL time.Duration
}

// GroupPage - лента группы
type GroupPage struct {
	Group *models.Group `json:"group"`
	Page  *PostPage     `json:"page"`
}

// Profile - страница автора
type Profile struct {
	Author      *models.User `json:"author"`
	Page        *PostPage    `json:"page"`
	Followers   int64        `json:"followers"`
	Following   int64        `json:"following"`
	IsFollowing bool         `json:"is_following"`
}

// PostView - пост с комментариями и другими постами автора
type PostView struct {
	Post        *models.Post     `json:"post"`
	Comments    []models.Comment `json:"comments"`
	AuthorPosts []models.Post    `json:"author_posts"`
	PostCount   int64            `json:"post_count"`
}

// FeedService - чтение лент. Главная лента кэшируется постранично на IndexTTL
// и не сбрасывается при записи.
type FeedService struct {
	store   *store.Store
	cache   *cache.PageCache
	storage media.Storage
	opts    FeedOptions
}

func NewFeedService(st *store.Store, pageCache *cache.PageCache, storage media.Storage, opts FeedOptions) *FeedService {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.IndexTTL == 0 {
		opts.IndexTTL = DefaultIndexTTL
	}
	if pageCache == nil {
		pageCache = cache.NewPageCache("index", cache.NoopCache{})
	}
	return &FeedService{store: st, cache: pageCache, storage: storage, opts: opts}
}

func (s *FeedService) withImageURLs(posts []models.Post) []models.Post {
	if s.storage == nil {
		return posts
	}
	for i := range posts {
		if posts[i].Image != "" {
			posts[i].ImageURL = s.storage.URL(posts[i].Image)
		}
	}
	return posts
}

func (s *FeedService) page(ctx context.Context, f store.PostFilter, requested int) (*PostPage, error) {
	count, err := s.store.CountPosts(ctx, f)
	if err != nil {
		return nil, err
	}
	number, numPages, offset := pageWindow(count, s.opts.PageSize, requested)
	posts, err := s.store.ListPosts(ctx, f, offset, s.opts.PageSize)
	if err != nil {
		return nil, err
	}
	return newPostPage(number, numPages, count, s.withImageURLs(posts)), nil
}

// GlobalFeed - все посты от новых к старым, через кэш страниц.
// Ключ строится по уже прижатому номеру, так что страниц в кэше не больше, чем в ленте.
func (s *FeedService) GlobalFeed(ctx context.Context, page int) (*PostPage, error) {
	count, err := s.store.CountPosts(ctx, store.PostFilter{})
	if err != nil {
		return nil, err
	}
	number, _, _ := pageWindow(count, s.opts.PageSize, page)

	raw, err := s.cache.GetOrCompute(ctx, IndexPageKey(number), s.opts.IndexTTL, func(ctx context.Context) ([]byte, error) {
		p, err := s.page(ctx, store.PostFilter{}, number)
		if err != nil {
			return nil, err
		}
		return json.Marshal(p)
	})
	if err != nil {
		return nil, err
	}
	var result PostPage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached page: %w", err)
	}
	return &result, nil
}

func (s *FeedService) GroupFeed(ctx context.Context, slug string, page int) (*GroupPage, error) {
	group, err := s.store.GroupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	p, err := s.page(ctx, store.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, err
	}
	return &GroupPage{Group: group, Page: p}, nil
}

// UserFeed - профиль автора; viewer == nil для анонима
func (s *FeedService) UserFeed(ctx context.Context, viewer *models.User, username string, page int) (*Profile, error) {
	author, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	p, err := s.page(ctx, store.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, err
	}
	followers, err := s.store.FollowerCount(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.store.FollowingCount(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		Author:    author,
		Page:      p,
		Followers: followers,
		Following: following,
	}
	if viewer != nil {
		profile.IsFollowing, err = s.store.IsFollowing(ctx, viewer.ID, author.ID)
		if err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (s *FeedService) PostDetail(ctx context.Context, username string, postID int64) (*PostView, error) {
	post, err := s.store.PostByAuthorAndID(ctx, username, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.CommentsByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	others, err := s.store.ListPosts(ctx, store.PostFilter{AuthorID: post.AuthorID, ExcludeID: post.ID}, 0, 0)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountPosts(ctx, store.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	if s.storage != nil && post.Image != "" {
		post.ImageURL = s.storage.URL(post.Image)
	}
	return &PostView{
		Post:        post,
		Comments:    comments,
		AuthorPosts: s.withImageURLs(others),
		PostCount:   count,
	}, nil
}

// FollowFeed - посты авторов, на которых подписан viewer
func (s *FeedService) FollowFeed(ctx context.Context, viewer *models.User, page int) (*PostPage, error) {
	if viewer == nil {
		return nil, ErrAuthRequired
	}
	return s.page(ctx, store.PostFilter{FollowerID: viewer.ID}, page)
}

func (s *FeedService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.store.ListGroups(ctx)
}
