package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sustainasite/sustainasite-backend/internal/db"
	"github.com/sustainasite/sustainasite-backend/internal/middleware"
	"github.com/sustainasite/sustainasite-backend/internal/siting"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "SustainaSite is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := provider.LoadFromEnv()
	if cfg.RecordRuns {
		if err := db.Connect(cfg.DatabaseURL); err != nil {
			log.Fatal(err)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	siting.Init(cfg)
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/sites", siting.SetupRoutes())

	log.Printf("Server listening on port :%s...", port)

	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatal(err)
	}
}
