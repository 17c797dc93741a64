package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pricetrail/config"
)

func NewHTTPServer(cfg config.Config, mux *chi.Mux) *http.Server {
	// The synchronous scrape route blocks for the workflow budget plus the
	// store-polling loop; the write timeout has to outlive both or the server
	// closes the connection before the handler's response is written.
	syncBudget := cfg.ScrapeSyncTimeout + time.Duration(cfg.ScrapePollTries)*cfg.ScrapePollEvery

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      syncBudget + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
