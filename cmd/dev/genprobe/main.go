// Command genprobe runs the question and feedback prompts against the
// configured text generator and prints what the server would store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	dbfs "github.com/garnizeh/prepwise/db"
	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/internal/db"
	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	role := flag.String("role", "backend engineer", "job role")
	level := flag.String("level", "junior", "experience level")
	stack := flag.String("stack", "go,sql", "comma separated tech stack")
	amount := flag.Int("amount", 3, "number of questions")
	feedback := flag.Bool("feedback", false, "also synthesize feedback for a canned transcript")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// prompts come from the seeded templates in a scratch database
	database, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatal(err)
	}
	repo := sqlite.New(database, nil)

	gen, closeGen, err := ai.NewGenerator(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeGen()

	engine, err := ai.NewEngine(ctx, gen, cfg.EngineConfig, repo, repo)
	if err != nil {
		log.Fatal(err)
	}

	raw, err := engine.GenerateQuestions(ctx, ai.QuestionParams{
		Role:      *role,
		Level:     *level,
		TechStack: strings.Split(*stack, ","),
		Amount:    *amount,
	})
	if err != nil {
		log.Fatal(err)
	}
	questions, err := ai.ParseQuestions(raw)
	if err != nil {
		log.Fatalf("%v\nraw output:\n%s", err, raw)
	}
	for i, q := range questions {
		fmt.Printf("%d. %s\n", i+1, q)
	}

	if !*feedback {
		return
	}
	turns := []models.Turn{{Role: "agent", Content: questions[0]}}
	turns = append(turns, models.Turn{Role: "user", Content: "I am not sure, I would look it up."})
	res := engine.CreateFeedback(ctx, turns)
	if !res.Success {
		log.Fatal("feedback generation failed")
	}
	fmt.Println(res.Feedback)
}
