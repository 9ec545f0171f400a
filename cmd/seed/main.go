// Command seed fills a development database with demo articles, reactions,
// comment threads and role assignments.
package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/config"
	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/portfolio-blog-api/pkg/logger"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

type demoUser struct {
	id   string
	name string
	role models.Role
}

func main() {
	articles := flag.Int("articles", 12, "number of articles to create")
	comments := flag.Int("comments", 8, "maximum root comments per article")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	log := logger.New(logger.Options{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Env: cfg.Env})
	if cfg.IsProduction() {
		log.Fatal().Msg("Refusing to seed a production database")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repos := repository.New(db)
	services := service.NewServices(repos, service.Externals{}, cfg, log)
	faker := gofakeit.New(*seed)
	ctx := context.Background()

	users := []demoUser{
		{id: "demo-admin", name: "Demo Admin", role: models.RoleAdmin},
		{id: "demo-editor", name: "Demo Editor", role: models.RoleEditor},
		{id: "demo-viewer", name: "Demo Viewer", role: models.RoleViewer},
	}
	for i := 0; i < 5; i++ {
		users = append(users, demoUser{id: uuid.New().String(), name: faker.Name(), role: models.RoleViewer})
	}
	for _, u := range users {
		if _, err := services.Roles.SetRole(ctx, "seed", u.id, u.role); err != nil {
			log.Fatal().Err(err).Str("user_id", u.id).Msg("Failed to assign role")
		}
	}

	created := 0
	for i := 0; i < *articles; i++ {
		article, err := services.Articles.Create(ctx, fakeArticle(faker))
		if err != nil {
			if models.ErrorCode(err) == models.CodeConflict {
				continue
			}
			log.Fatal().Err(err).Msg("Failed to create article")
		}
		created++

		thread := fakeComments(faker, article.ID, users, faker.Number(0, *comments))
		if _, err := repos.Comment.BatchInsert(ctx, thread); err != nil {
			log.Fatal().Err(err).Str("slug", article.Slug).Msg("Failed to insert comments")
		}
		if _, err := services.Interactions.RecountComments(ctx, article.Slug); err != nil {
			log.Fatal().Err(err).Str("slug", article.Slug).Msg("Failed to recount comments")
		}

		reactions := map[string]int{
			models.ReactionLikes:    faker.Number(0, 120),
			models.ReactionHearts:   faker.Number(0, 60),
			models.ReactionLaughs:   faker.Number(0, 30),
			models.ReactionDislikes: faker.Number(0, 5),
		}
		if _, err := services.Interactions.SetReactions(ctx, article.Slug, reactions); err != nil {
			log.Fatal().Err(err).Str("slug", article.Slug).Msg("Failed to set reactions")
		}

		log.Info().Str("slug", article.Slug).Int("comments", len(thread)).Msg("Seeded article")
	}

	log.Info().Int("articles", created).Int("users", len(users)).Msg("Seed completed")

	// Local tokens for trying the API without the identity provider
	verifier := auth.NewSessionVerifier(cfg.Auth.JWTSecret)
	for _, u := range users[:3] {
		token, err := verifier.Sign(auth.Session{UserID: u.id, Name: u.name}, 24*time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to sign demo token")
		}
		fmt.Printf("%s (%s): %s\n", u.name, u.role, token)
	}
}

func fakeArticle(f *gofakeit.Faker) *models.ArticleInput {
	title := strings.TrimSuffix(f.Sentence(f.Number(3, 7)), ".")
	category := f.RandomString([]string{"Engineering", "Career", "Design", "Tooling"})
	date := f.DateRange(time.Now().AddDate(-2, 0, 0), time.Now()).Format(models.PublishedDateLayout)

	content := []models.ContentBlock{
		{Type: models.BlockTLDR, Text: f.Sentence(12)},
		{Type: models.BlockParagraph, Text: f.Paragraph(1, 5, 14, " ")},
		{Type: models.BlockHeading, Level: 2, Text: strings.TrimSuffix(f.Sentence(4), ".")},
		{Type: models.BlockParagraph, Text: f.Paragraph(1, 6, 14, " ")},
		{Type: models.BlockList, Items: []string{f.HackerPhrase(), f.HackerPhrase(), f.HackerPhrase()}},
		{Type: models.BlockCode, Language: "go", Text: "fmt.Println(\"" + f.Word() + "\")"},
		{Type: models.BlockQuote, Text: f.Quote()},
		{Type: models.BlockFAQ, Question: f.Question(), Answer: f.Sentence(10)},
		{Type: models.BlockTags, Items: []string{f.Word(), f.Word(), f.Word()}},
	}

	return &models.ArticleInput{
		Title:         title,
		Slug:          slugify(title),
		Author:        f.Name(),
		Category:      &category,
		PublishedDate: &date,
		Content:       content,
	}
}

// fakeComments builds roots followed by their replies, the order BatchInsert needs
func fakeComments(f *gofakeit.Faker, articleID string, users []demoUser, roots int) []*models.Comment {
	var out []*models.Comment
	var replies []*models.Comment
	base := time.Now().UTC().Add(-72 * time.Hour)

	for i := 0; i < roots; i++ {
		author := users[f.Number(0, len(users)-1)]
		root := fakeComment(f, articleID, author, base.Add(time.Duration(i)*time.Hour), users)
		out = append(out, root)

		for j := 0; j < f.Number(0, 3); j++ {
			replier := users[f.Number(0, len(users)-1)]
			parentID := root.ID
			reply := fakeComment(f, articleID, replier, root.CreatedAt.Add(time.Duration(j+1)*10*time.Minute), users)
			reply.ParentID = &parentID
			replies = append(replies, reply)
		}
	}
	return append(out, replies...)
}

func fakeComment(f *gofakeit.Faker, articleID string, author demoUser, at time.Time, users []demoUser) *models.Comment {
	likedBy := []string{}
	for _, u := range users {
		if u.id != author.id && f.Number(0, 3) == 0 {
			likedBy = append(likedBy, u.id)
		}
	}
	return &models.Comment{
		ID:        fmt.Sprintf("%d-%s", at.UnixMilli(), uuid.New().String()[:8]),
		ArticleID: articleID,
		UserID:    author.id,
		UserName:  author.name,
		Content:   f.Sentence(f.Number(5, 25)),
		Likes:     len(likedBy),
		LikedBy:   likedBy,
		CreatedAt: at,
	}
}
