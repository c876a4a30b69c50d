// Package seed provides helpers to create demo data for development and
// testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"undertone/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	SkipBcrypt  bool
	MaxDaysBack int
}

// Seeder populates the database with plausible demo content.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a new Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 100
	}
	if opts.MaxDaysBack <= 0 {
		opts.MaxDaysBack = 90
	}
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var builtinCommunities = []models.Community{
	{Slug: "music", Name: "Music", Description: "Songs, albums, scenes and shows"},
	{Slug: "technology", Name: "Technology", Description: "Gadgets, code and the people who ship them"},
	{Slug: "books", Name: "Books", Description: "What you are reading and why it matters"},
	{Slug: "fitness", Name: "Fitness", Description: "Training logs, questions and small wins"},
	{Slug: "travel", Name: "Travel", Description: "Places worth the trip"},
}

var interestPool = []string{
	"music", "hiking", "photography", "cooking", "gaming", "reading",
	"running", "film", "jazz", "synthesizers", "climbing", "gardening",
}

var emotionPool = []string{
	"joy", "sadness", "anger", "fear", "surprise", "disgust", "neutral",
}

// ClearAll truncates every seeded table. Development use only.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"user_interests", "comments", "posts", "interests",
		"signup_verifications", "users", "communities",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// Run seeds communities, users, posts and comment threads.
func (s *Seeder) Run() error {
	communities, err := s.Communities()
	if err != nil {
		return err
	}

	users, err := s.Users(s.opts.NumUsers)
	if err != nil {
		return err
	}
	log.Printf("seeded %d users", len(users))

	posts, err := s.Posts(users, communities, s.opts.NumPosts)
	if err != nil {
		return err
	}
	log.Printf("seeded %d posts", len(posts))

	n, err := s.CommentThreads(users, posts)
	if err != nil {
		return err
	}
	log.Printf("seeded %d comments", n)
	return nil
}

// Communities upserts the built-in community set.
func (s *Seeder) Communities() ([]models.Community, error) {
	out := make([]models.Community, 0, len(builtinCommunities))
	for _, c := range builtinCommunities {
		var existing models.Community
		err := s.db.Where("slug = ?", c.Slug).FirstOrCreate(&existing, c).Error
		if err != nil {
			return nil, err
		}
		out = append(out, existing)
	}
	return out, nil
}

// Users creates n users, each with a couple of interests. Every account
// gets the password "password123".
func (s *Seeder) Users(n int) ([]*models.User, error) {
	password := "password123"
	if !s.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		password = string(hashed)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Username: strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: password,
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}
		if err := s.attachInterests(user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) attachInterests(user *models.User) error {
	count := 1 + s.rng.Intn(3)
	picked := s.rng.Perm(len(interestPool))[:count]
	for _, idx := range picked {
		var interest models.Interest
		err := s.db.Where("name = ?", interestPool[idx]).
			FirstOrCreate(&interest, models.Interest{Name: interestPool[idx]}).Error
		if err != nil {
			return err
		}
		if err := s.db.Model(user).Association("Interests").Append(&interest); err != nil {
			return err
		}
	}
	return nil
}

// Posts creates n posts spread over the past MaxDaysBack days, most of them
// in a community, with pre-filled emotion fields so listings look lived-in
// without an inference service running.
func (s *Seeder) Posts(users []*models.User, communities []models.Community, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		user := users[s.rng.Intn(len(users))]
		post := &models.Post{
			Title:     gofakeit.Sentence(5),
			Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
			UserID:    user.ID,
			Upvotes:   s.rng.Intn(200),
			Downvotes: s.rng.Intn(40),
			CreatedAt: s.timestampBack(),
		}
		if s.rng.Intn(10) < 8 {
			c := communities[s.rng.Intn(len(communities))]
			post.CommunityID = &c.ID
		}
		s.fillEmotions(&post.DominantEmotion, &post.Emotions, &post.EmotionConfidence)

		if err := s.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// CommentThreads adds a few comments per post, some of them replies.
func (s *Seeder) CommentThreads(users []*models.User, posts []*models.Post) (int, error) {
	total := 0
	for _, post := range posts {
		count := s.rng.Intn(6)
		var roots []uint
		for i := 0; i < count; i++ {
			comment := &models.Comment{
				PostID:    post.ID,
				UserID:    users[s.rng.Intn(len(users))].ID,
				Content:   gofakeit.Sentence(12),
				Upvotes:   s.rng.Intn(50),
				CreatedAt: post.CreatedAt.Add(time.Duration(i+1) * time.Hour),
			}
			if len(roots) > 0 && s.rng.Intn(3) == 0 {
				parent := roots[s.rng.Intn(len(roots))]
				comment.ParentID = &parent
			}
			s.fillEmotions(&comment.DominantEmotion, &comment.Emotions, &comment.EmotionConfidence)

			if err := s.db.Create(comment).Error; err != nil {
				return total, err
			}
			if comment.ParentID == nil {
				roots = append(roots, comment.ID)
			}
			total++
		}
		if count > 0 {
			err := s.db.Model(&models.Post{}).
				Where("id = ?", post.ID).
				UpdateColumn("comments_count", count).Error
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (s *Seeder) fillEmotions(dominant *string, list *models.EmotionList, confidence *float64) {
	e := emotionPool[s.rng.Intn(len(emotionPool))]
	p := 0.4 + s.rng.Float64()*0.55
	*dominant = e
	*list = models.EmotionList{{Emotion: e, Probability: p}}
	*confidence = p
}

func (s *Seeder) timestampBack() time.Time {
	daysBack := s.rng.Intn(s.opts.MaxDaysBack)
	hoursBack := s.rng.Intn(24)
	return time.Now().
		Add(-time.Duration(daysBack) * 24 * time.Hour).
		Add(-time.Duration(hoursBack) * time.Hour)
}
