package nairaramp

import (
	"context"
	"net/http"
	"time"
)

type Server struct {
	httpServer *http.Server
}

type ServerOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (s *Server) Run(port string, handler http.Handler, opts ServerOptions) error {
	s.httpServer = &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		// Zero keeps the admin event stream open.
		WriteTimeout: opts.WriteTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
