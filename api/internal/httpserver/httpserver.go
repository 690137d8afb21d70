package httpserver

import (
	"log"
	"net/http"
	"time"
)

// Start поднимает HTTP-сервер с ограниченными таймаутами: все операции
// сессии — блокирующие обращения к файлам и таблице, висеть бесконечно
// они не должны.
func Start(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Printf("listening on %s", addr)
	return srv.ListenAndServe()
}
