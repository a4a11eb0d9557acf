package main

import (
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"audioforge/internal/application/convert"
	"audioforge/internal/config"
	"audioforge/internal/infrastructure/ffmpeg"
	"audioforge/internal/infrastructure/filesystem"
	"audioforge/internal/infrastructure/s3archive"
	"audioforge/internal/jobstore"
	httptransport "audioforge/internal/transport/http"
)

func main() {
	cfg := config.Load()

	files := filesystem.NewStore(cfg.UploadsDir, cfg.OutputDir)
	if err := files.EnsureDirs(); err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	var archive convert.Archiver
	if cfg.S3Bucket != "" {
		archive = s3archive.New(s3archive.Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		log.Printf("result archiving enabled: bucket=%s", cfg.S3Bucket)
	}

	service := convert.NewService(jobstore.NewMemory(), files, ffmpeg.NewRunner(), archive, log.Default())
	service.MaxUploadBytes = int64(cfg.MaxUploadMB) << 20
	service.ConvertTimeout = time.Duration(cfg.ConvertTimeoutMinutes) * time.Minute

	handler := httptransport.NewHandler(service, service.MaxUploadBytes)
	router := httptransport.NewRouter(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})

	log.Printf("Converter service running on %s", cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, c.Handler(router)))
}
