package httpserver

import (
	"log"
	"net/http"

	"github.com/itskum47/KMRL-DocAI/internal/http/handlers"
	"github.com/itskum47/KMRL-DocAI/internal/http/middleware"
	"github.com/itskum47/KMRL-DocAI/internal/identity"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	Verifier       identity.Verifier
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/documents/presign", deps.API.Presign)
	mux.HandleFunc("/v1/documents", deps.API.Documents)
	mux.HandleFunc("/v1/documents/", deps.API.DocumentByID)
	mux.HandleFunc("/v1/tasks", deps.API.Tasks)
	mux.HandleFunc("/v1/tasks/", deps.API.TaskByID)
	mux.HandleFunc("/v1/jobs/", deps.API.JobStatus)
	mux.HandleFunc("/v1/webhooks/processing", deps.API.ProcessingWebhook)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.Verifier)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
