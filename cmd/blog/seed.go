package main

import (
	"context"
	"fmt"
	"strings"

	"blog/db"
	"blog/logger"
	"blog/media"
	"blog/models"
	"blog/services"
	"blog/store"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	users    int
	groups   int
	posts    int
	comments int
	follows  int
	images   bool
	password string
}

var seedOpts seedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, groups, posts and follows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		orm, err := openStore(conf)
		if err != nil {
			return err
		}
		defer db.Close(orm)

		storage, err := media.New(conf.Media)
		if err != nil {
			return err
		}
		return seed(cmd.Context(), store.New(orm), storage, seedOpts)
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.users, "users", 20, "number of users")
	seedCmd.Flags().IntVar(&seedOpts.groups, "groups", 5, "number of groups")
	seedCmd.Flags().IntVar(&seedOpts.posts, "posts", 10, "posts per user")
	seedCmd.Flags().IntVar(&seedOpts.comments, "comments", 2, "comments per post")
	seedCmd.Flags().IntVar(&seedOpts.follows, "follows", 5, "authors followed by each user")
	seedCmd.Flags().BoolVar(&seedOpts.images, "images", false, "attach a generated png to every third post")
	seedCmd.Flags().StringVar(&seedOpts.password, "password", "password123", "password of every seeded user")
	RootCmd.AddCommand(seedCmd)
}

func seed(ctx context.Context, st *store.Store, storage media.Storage, opts seedOptions) error {
	hash, err := services.HashPassword(opts.password)
	if err != nil {
		return err
	}

	users := make([]models.User, 0, opts.users)
	for i := 0; i < opts.users; i++ {
		name := gofakeit.FirstName()
		user := models.User{
			Username:  fmt.Sprintf("%s_%s", strings.ToLower(name), gofakeit.Numerify("######")),
			FirstName: name,
			LastName:  gofakeit.LastName(),
			Password:  hash,
		}
		if err := st.CreateUser(ctx, &user); err != nil {
			return fmt.Errorf("create user %s: %w", user.Username, err)
		}
		users = append(users, user)
	}

	groups := make([]models.Group, 0, opts.groups)
	for i := 0; i < opts.groups; i++ {
		title := gofakeit.HipsterWord()
		group := models.Group{
			Title:       title,
			Slug:        fmt.Sprintf("%s-%d", slugify(title), i+1),
			Description: gofakeit.Sentence(12),
		}
		if err := st.CreateGroup(ctx, &group); err != nil {
			return fmt.Errorf("create group %s: %w", group.Slug, err)
		}
		groups = append(groups, group)
	}

	var posts, comments, follows int
	for ui, user := range users {
		for i := 0; i < opts.posts; i++ {
			post := models.Post{Text: gofakeit.Sentence(gofakeit.Number(5, 30)), AuthorID: user.ID}
			if len(groups) > 0 && gofakeit.Bool() {
				post.GroupID = &groups[gofakeit.Number(0, len(groups)-1)].ID
			}
			if opts.images && i%3 == 0 {
				key, err := media.Store(ctx, storage, media.Upload{Filename: "seed.png", Data: gofakeit.ImagePng(320, 240)})
				if err != nil {
					return fmt.Errorf("store image: %w", err)
				}
				post.Image = key
			}
			if err := st.CreatePost(ctx, &post); err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			posts++

			for j := 0; j < opts.comments && len(users) > 0; j++ {
				commenter := users[gofakeit.Number(0, len(users)-1)]
				comment := models.Comment{PostID: post.ID, AuthorID: commenter.ID, Text: gofakeit.Sentence(8)}
				if err := st.CreateComment(ctx, &comment); err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				comments++
			}
		}

		for j := 1; j <= opts.follows && j < len(users); j++ {
			author := users[(ui+j)%len(users)]
			inserted, err := st.CreateFollow(ctx, user.ID, author.ID)
			if err != nil {
				return fmt.Errorf("create follow: %w", err)
			}
			if inserted {
				follows++
			}
		}
	}

	logger.L.Info("Seed finished",
		zap.Int("users", len(users)),
		zap.Int("groups", len(groups)),
		zap.Int("posts", posts),
		zap.Int("comments", comments),
		zap.Int("follows", follows))
	return nil
}

// slugify оставляет только [a-z0-9], остальное заменяет на "-"
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "group"
	}
	return b.String()
}
