// Recompute stored quiz max_points from the question rows.
//
// max_points is denormalized on the quiz and kept current by the service
// layer. Run this after importing quizzes or editing questions directly in
// the database.
//
// Usage: go run scripts/recompute_points.go
package main

import (
	"log"
	"os"
	"quizforge_backend/internal/config"
	"quizforge_backend/internal/model"
	"quizforge_backend/pkg/database"
	"quizforge_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var quizzes []model.Quiz
	if err := db.Preload("Questions.Options").Find(&quizzes).Error; err != nil {
		log.Fatalf("Failed to load quizzes: %v", err)
	}

	fixed := 0
	for i := range quizzes {
		quiz := &quizzes[i]
		want := quiz.ComputeMaxPoints()
		if want == quiz.MaxPoints {
			continue
		}
		if err := db.Model(&model.Quiz{}).Where("id = ?", quiz.ID).
			Update("max_points", want).Error; err != nil {
			log.Fatalf("Failed to update quiz %d: %v", quiz.ID, err)
		}
		log.Printf("quiz %d: max_points %d -> %d", quiz.ID, quiz.MaxPoints, want)
		fixed++
	}

	log.Printf("Done: %d of %d quizzes updated", fixed, len(quizzes))
}
