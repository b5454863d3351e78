package main

import (
	_ "github.com/pulsefit/coach-backend/docs"
	"github.com/pulsefit/coach-backend/internal/bootstrap"
)

// @title Coach Backend API
// @version 1.0.0
// @description API server for live voice coaching sessions

// @host api.pulsefit.example.com
// @BasePath /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	bootstrap.Run()
}
