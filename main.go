package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"caringai-backend/admin"
	"caringai-backend/conn"
	"caringai-backend/consultation"
	"caringai-backend/llm"
	"caringai-backend/migrations"
	"caringai-backend/openai"
	"caringai-backend/patients"
	"caringai-backend/perplexity"
	"caringai-backend/report"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[boot] no .env file loaded; relying on process env")
	}

	db, err := conn.NewMySQL()
	if err != nil {
		log.Fatalf("[boot] mysql: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[boot] migrate: %v", err)
	}

	gateway := llm.NewGateway(openai.NewClient(), perplexity.NewClient())

	patientRepo := patients.NewRepository(db)
	consultRepo := consultation.NewRepository(db)
	reportRepo := report.NewRepository(db)

	machine := consultation.NewMachine(gateway)
	store := consultation.NewStore()

	r := gin.Default()

	patients.NewHandler(patientRepo).RegisterRoutes(r)
	consultation.NewHandler(machine, store, patientRepo, consultRepo).RegisterRoutes(r)
	report.NewHandler(&report.Builder{GW: gateway}, store, reportRepo).RegisterRoutes(r)
	admin.NewHandler(db, patientRepo, consultRepo, reportRepo).RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("[boot] listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("[boot] server: %v", err)
	}
}
