// Package catalog loads a seed catalog of users, contents, videos and
// questions from YAML and imports it into the store.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/logger"
	"github.com/feedbreak/feedbreak/internal/media"
	"github.com/feedbreak/feedbreak/internal/store"
)

// Catalog is the seed file layout.
type Catalog struct {
	Users    []User    `yaml:"users"`
	Contents []Content `yaml:"contents"`
}

type User struct {
	DeviceID           string   `yaml:"device_id"`
	Name               string   `yaml:"name"`
	Age                int      `yaml:"age"`
	Interests          []string `yaml:"interests"`
	EducationLevel     string   `yaml:"education_level"`
	CheckpointInterval int      `yaml:"checkpoint_interval"`
}

type Content struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Audience    string     `yaml:"audience"`
	Category    string     `yaml:"category"`
	Difficulty  int        `yaml:"difficulty"`
	Active      *bool      `yaml:"active"`
	Videos      []Video    `yaml:"videos"`
	Questions   []Question `yaml:"questions"`
}

// Video.URL may be a bare YouTube id or any URL form media.ExtractVideoID
// understands.
type Video struct {
	URL                string   `yaml:"url"`
	Title              string   `yaml:"title"`
	Description        string   `yaml:"description"`
	DurationSeconds    int      `yaml:"duration_seconds"`
	CheckpointInterval int      `yaml:"checkpoint_interval"`
	ExpectedConcepts   []string `yaml:"expected_concepts"`
}

type Question struct {
	Text             string   `yaml:"text"`
	ExpectedConcepts []string `yaml:"expected_concepts"`
	Difficulty       int      `yaml:"difficulty"`
	Points           int      `yaml:"points"`
}

// Summary counts what an import created and skipped.
type Summary struct {
	Users           int
	Contents        int
	Videos          int
	Questions       int
	SkippedUsers    int
	SkippedContents int
}

// Parse decodes a catalog. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (c *Catalog) validate() error {
	for i, u := range c.Users {
		if strings.TrimSpace(u.DeviceID) == "" {
			return apperr.Invalid(fmt.Sprintf("users[%d].device_id", i), "must not be empty")
		}
	}
	for i, ct := range c.Contents {
		if strings.TrimSpace(ct.Title) == "" {
			return apperr.Invalid(fmt.Sprintf("contents[%d].title", i), "must not be empty")
		}
		for j, v := range ct.Videos {
			if media.ExtractVideoID(v.URL) == "" {
				return apperr.Invalid(fmt.Sprintf("contents[%d].videos[%d].url", i, j), "must not be empty")
			}
		}
		for j, q := range ct.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return apperr.Invalid(fmt.Sprintf("contents[%d].questions[%d].text", i, j), "must not be empty")
			}
		}
	}
	return nil
}

// Store is the persistence Import needs. *store.Store satisfies it.
type Store interface {
	WithTx(ctx context.Context, fn func(q store.Querier) error) error
}

// Import writes the catalog in one transaction. Users whose device id
// already exists and contents whose title already exists are skipped, so
// importing the same file twice is a no-op.
func Import(ctx context.Context, s Store, c *Catalog, log *logger.Logger) (Summary, error) {
	if log == nil {
		log = logger.Nop()
	}
	var sum Summary
	err := s.WithTx(ctx, func(q store.Querier) error {
		sum = Summary{}
		for _, u := range c.Users {
			existing, err := q.FindUserByDeviceID(ctx, u.DeviceID)
			if err != nil {
				return err
			}
			if existing != nil {
				sum.SkippedUsers++
				continue
			}
			if _, err := q.CreateUser(ctx, store.UserProfile{
				DeviceID:           u.DeviceID,
				Name:               u.Name,
				Age:                u.Age,
				Interests:          u.Interests,
				EducationLevel:     u.EducationLevel,
				CheckpointInterval: u.CheckpointInterval,
			}); err != nil {
				return fmt.Errorf("user %s: %w", u.DeviceID, err)
			}
			sum.Users++
		}

		existing, err := q.ListContents(ctx, false)
		if err != nil {
			return err
		}
		titles := make(map[string]bool, len(existing))
		order := 0
		for _, ct := range existing {
			titles[ct.Title] = true
			if ct.OrderIndex >= order {
				order = ct.OrderIndex + 1
			}
		}

		for _, ct := range c.Contents {
			if titles[ct.Title] {
				sum.SkippedContents++
				log.Debug("content already present", "title", ct.Title)
				continue
			}
			if err := importContent(ctx, q, ct, order, &sum); err != nil {
				return fmt.Errorf("content %q: %w", ct.Title, err)
			}
			titles[ct.Title] = true
			order++
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	log.Info("catalog imported",
		"users", sum.Users, "contents", sum.Contents, "videos", sum.Videos, "questions", sum.Questions,
		"skipped_users", sum.SkippedUsers, "skipped_contents", sum.SkippedContents)
	return sum, nil
}

func importContent(ctx context.Context, q store.Querier, ct Content, order int, sum *Summary) error {
	active := true
	if ct.Active != nil {
		active = *ct.Active
	}
	difficulty := ct.Difficulty
	if difficulty == 0 {
		difficulty = 1
	}
	content := &store.Content{
		Title:       ct.Title,
		Description: ct.Description,
		Audience:    ct.Audience,
		Category:    ct.Category,
		Difficulty:  difficulty,
		OrderIndex:  order,
		Active:      active,
	}
	if err := q.CreateContent(ctx, content); err != nil {
		return err
	}
	sum.Contents++

	for i, v := range ct.Videos {
		video := &store.Video{
			ContentID:          content.ID,
			ExternalID:         media.ExtractVideoID(v.URL),
			Title:              v.Title,
			Description:        v.Description,
			DurationSeconds:    v.DurationSeconds,
			CheckpointInterval: v.CheckpointInterval,
			OrderIndex:         i,
			ExpectedConcepts:   v.ExpectedConcepts,
			Active:             true,
		}
		if err := q.CreateVideo(ctx, video); err != nil {
			return err
		}
		sum.Videos++
	}

	for i, qs := range ct.Questions {
		d := qs.Difficulty
		if d == 0 {
			d = difficulty
		}
		points := qs.Points
		if points == 0 {
			points = 10
		}
		question := &store.Question{
			ContentID:        content.ID,
			Prompt:           qs.Text,
			OrderIndex:       i,
			ExpectedConcepts: qs.ExpectedConcepts,
			Difficulty:       d,
			Points:           points,
			GeneratedBy:      store.GeneratedManual,
			Active:           true,
		}
		if err := q.CreateQuestion(ctx, question); err != nil {
			return err
		}
		sum.Questions++
	}
	return nil
}
