package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// seedQuestion is the on-disk shape accepted by -file.
type seedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

var sampleQuestions = []seedQuestion{
	{"What is the capital of France?", []string{"London", "Berlin", "Paris", "Madrid"}, 2},
	{"Which programming language is known as the 'language of the web'?", []string{"Python", "JavaScript", "Java", "C++"}, 1},
	{"What does HTML stand for?", []string{"Hyper Text Markup Language", "High Tech Modern Language", "Home Tool Markup Language", "Hyperlinks and Text Markup Language"}, 0},
	{"Which of the following is NOT a JavaScript framework?", []string{"React", "Angular", "Django", "Vue"}, 2},
	{"What is the time complexity of binary search?", []string{"O(n)", "O(log n)", "O(n²)", "O(1)"}, 1},
	{"Which CSS property is used to change the text color?", []string{"text-color", "font-color", "color", "text-style"}, 2},
	{"What does SQL stand for?", []string{"Structured Query Language", "Simple Question Language", "Structured Question Language", "Simple Query Language"}, 0},
	{"Which HTTP method is used to send data to a server?", []string{"GET", "POST", "PUT", "DELETE"}, 1},
	{"What is the main purpose of Git?", []string{"Database management", "Version control", "Web hosting", "Code compilation"}, 1},
	{"Which of the following is a NoSQL database?", []string{"MySQL", "PostgreSQL", "MongoDB", "Oracle"}, 2},
}

func main() {
	var (
		file  string
		bank  string
		reset bool
	)
	flag.StringVar(&file, "file", "", "JSON file with questions (default: built-in sample bank)")
	flag.StringVar(&bank, "bank", "", "Bank name (default: QUESTION_BANK)")
	flag.BoolVar(&reset, "reset", false, "Delete the bank before seeding")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if bank == "" {
		bank = cfg.QuestionBank
	}

	seed := sampleQuestions
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to read question file")
		}
		if err := json.Unmarshal(data, &seed); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to parse question file")
		}
	}

	questions := make([]model.Question, len(seed))
	for i, q := range seed {
		questions[i] = model.Question{
			Bank:          bank,
			QuestionText:  q.Question,
			Options:       q.Options,
			CorrectOption: q.CorrectAnswer,
			OrderNum:      i + 1,
		}
	}
	if err := service.ValidateBank(questions); err != nil {
		log.Fatal().Err(err).Msg("Refusing to seed invalid bank")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	questionService := service.NewQuestionService(questionRepo, rdb, bank, log)

	fmt.Printf("=== Seeding %d questions into bank %q ===\n", len(questions), bank)

	if reset {
		n, err := questionRepo.DeleteBank(ctx, bank)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reset bank")
		}
		fmt.Printf("Deleted %d existing questions\n", n)
	}

	for i := range questions {
		if err := questionRepo.Upsert(ctx, &questions[i]); err != nil {
			log.Fatal().Err(err).Int("order_num", questions[i].OrderNum).Msg("Failed to upsert question")
		}
	}

	// Running servers would otherwise keep serving the old paper.
	if err := questionService.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate question cache")
	}

	fmt.Println("Done.")
}
