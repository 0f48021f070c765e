package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"telegram-card-catalog/internal/config"
	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	pg "telegram-card-catalog/internal/infra/db/postgres"
)

// Retries per card before giving up on a free display number.
const maxNumberAttempts = 25

// Seeds a handful of sample cards so the selector and search have
// something to serve on a fresh database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	cards := pg.NewCardRepo(pool)

	if n, err := cards.CountCards(ctx, repository.NoTX); err != nil {
		log.Fatalf("count cards: %v", err)
	} else if n > 0 {
		fmt.Printf("%d cards already present. No changes.\n", n)
		return
	}

	seed := []struct {
		Groups      []model.Group
		Category    string
		District    string
		Hashtags    []string
		Name        string
		Description string
	}{
		{[]model.Group{model.GroupCatalog}, "manicure", "District V", []string{"nails", "beauty"}, "Nail studio", "Gel and classic manicure, walk-ins welcome."},
		{[]model.Group{model.GroupCatalog, model.GroupPost}, "barber", "District VII", []string{"haircut", "men"}, "Old town barber", "Fades and beard trims near the ruin bars."},
		{[]model.Group{model.GroupCatalog, model.GroupPeople}, "photography", "District VI", []string{"photo", "portrait"}, "Portrait photographer", "Studio and outdoor sessions."},
		{[]model.Group{model.GroupCatalog, model.GroupPriority}, "massage", "District XIII", []string{"massage", "spa"}, "Thai massage", "Priority listing. Book a day ahead."},
		{[]model.Group{model.GroupCatalog, model.GroupPromo}, "cleaning", "District II", []string{"cleaning", "home"}, "Home cleaning crew", "Promoted. Weekly and one-off cleans."},
		{[]model.Group{model.GroupWork}, "courier", "citywide", []string{"job", "courier"}, "Bike courier wanted", "Part-time, own bike required."},
		{[]model.Group{model.GroupHome}, "rental", "District IX", []string{"flat", "rent"}, "Studio flat", "35 sqm, available from next month."},
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, s := range seed {
		draft := &model.CardDraft{
			Step:        model.StepPreview,
			Groups:      s.Groups,
			Link:        "https://t.me/sample/1",
			Media:       model.Media{Type: model.MediaPhoto, FileID: "seed-photo"},
			District:    s.District,
			Category:    s.Category,
			Hashtags:    s.Hashtags,
			Description: s.Description,
		}
		var card *model.Card
		for attempt := 0; attempt < maxNumberAttempts; attempt++ {
			number := model.MinCardNumber + rng.Intn(model.MaxCardNumber-model.MinCardNumber+1)
			c, err := model.NewCard(number, draft)
			if err != nil {
				log.Fatalf("build card %q: %v", s.Name, err)
			}
			c.Name = s.Name
			err = cards.Save(ctx, repository.NoTX, c)
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			if err != nil {
				log.Fatalf("save card %q: %v", s.Name, err)
			}
			card = c
			break
		}
		if card == nil {
			log.Fatalf("save card %q: no free number after %d attempts", s.Name, maxNumberAttempts)
		}
		fmt.Printf("seeded: #%d %s (%s)\n", card.Number, card.Name, card.Category)
	}

	fmt.Println("Seeding complete.")
}
