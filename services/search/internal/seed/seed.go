// Package seed loads a YAML catalog fixture into the relational store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pkgkafka "github.com/Anitha-22/myecommerce/pkg/kafka"
	"github.com/Anitha-22/myecommerce/pkg/validator"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/event"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository"
)

// Catalog is the fixture file layout.
type Catalog struct {
	Categories []domain.Category   `yaml:"categories"`
	Products   []domain.NewProduct `yaml:"products"`
}

// Publisher sends product change events.
type Publisher interface {
	Publish(ctx context.Context, topic string, events ...*pkgkafka.Event) error
}

// Skipped is a fixture product that was not inserted.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarises a seed run.
type Report struct {
	Categories int       `json:"categories"`
	Products   int       `json:"products"`
	Published  int       `json:"published"`
	Skipped    []Skipped `json:"skipped,omitempty"`
}

// Parse decodes a catalog fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// LoadFile reads and parses the fixture at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Seeder writes a catalog to the store.
type Seeder struct {
	store     repository.CatalogStore
	publisher Publisher
	logger    *slog.Logger
}

// NewSeeder creates a seeder. publisher may be nil, in which case no events
// are sent.
func NewSeeder(store repository.CatalogStore, publisher Publisher, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, publisher: publisher, logger: logger}
}

// Apply upserts every category, then inserts every product whose category
// is known and which passes validation. Invalid products are skipped and
// reported; category and store failures abort the run.
func (s *Seeder) Apply(ctx context.Context, catalog *Catalog) (*Report, error) {
	report := &Report{}

	categoryIDs := make(map[string]int, len(catalog.Categories))
	for _, c := range catalog.Categories {
		if err := validator.Validate(c); err != nil {
			return report, fmt.Errorf("category %q: %w", c.Name, err)
		}
		id, err := s.store.UpsertCategory(ctx, c)
		if err != nil {
			return report, fmt.Errorf("upsert category %q: %w", c.Name, err)
		}
		categoryIDs[strings.ToLower(c.Name)] = id
		report.Categories++
	}

	var created []*pkgkafka.Event
	for _, p := range catalog.Products {
		if err := validator.Validate(p); err != nil {
			s.skip(report, p.Name, err.Error())
			continue
		}
		categoryID, ok := categoryIDs[strings.ToLower(p.CategoryName)]
		if !ok {
			s.skip(report, p.Name, fmt.Sprintf("category %q not found", p.CategoryName))
			continue
		}

		id, err := s.store.InsertProduct(ctx, p, categoryID)
		if err != nil {
			return report, fmt.Errorf("insert product %q: %w", p.Name, err)
		}
		report.Products++

		if s.publisher != nil {
			evt, err := event.NewProductEvent(event.TopicProductCreated, id)
			if err != nil {
				return report, err
			}
			created = append(created, evt)
		}
	}

	if len(created) > 0 {
		if err := s.publisher.Publish(ctx, event.TopicProductCreated, created...); err != nil {
			return report, fmt.Errorf("publish product events: %w", err)
		}
		report.Published = len(created)
	}

	s.logger.Info("catalog seeded",
		slog.Int("categories", report.Categories),
		slog.Int("products", report.Products),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("published", report.Published),
	)
	return report, nil
}

func (s *Seeder) skip(report *Report, name, reason string) {
	s.logger.Warn("skipping product", slog.String("product", name), slog.String("reason", reason))
	report.Skipped = append(report.Skipped, Skipped{Name: name, Reason: reason})
}
