package server

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"screen-state-recognizer/internal/app"
)

type Options struct {
	Addr        string
	OpenBrowser bool
	// ImagesDir is served under /images/ so the page can show templates.
	ImagesDir string
}

type Server struct {
	app  *app.App
	opts Options
	log  zerolog.Logger
	http *http.Server
}

func NewServer(app *app.App, opts Options, log zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8081"
	}
	s := &Server{
		app:  app,
		opts: opts,
		log:  log,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

type wsRequest struct {
	Action string `json:"action"`
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws := s.app.GetWebSocketManager()
	conn, err := ws.HandleConnection(w, r)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer ws.RemoveConnection(conn)

	if s.app.IsRunning() {
		ws.UpdateStatus("watching")
	} else {
		ws.UpdateStatus("stopped")
	}
	if rep, ok := s.app.LastReport(); ok {
		ws.SendResult(rep)
	}

	for {
		var msg wsRequest
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Action {
		case "start":
			s.app.StartMonitoring()
		case "stop":
			s.app.StopMonitoring()
		case "test":
			ws.SendData("diagnostics", s.app.TestEnvironment())
		case "recognize":
			s.app.RecognizeOnce()
		case "reload":
			s.app.Reload()
		default:
			ws.SendLog(fmt.Sprintf("unknown action %q", msg.Action))
		}
	}
}

func (s *Server) ServeHTML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.ServeHTML).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/recognize", s.handleRecognize).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	api.HandleFunc("/states", s.handleStates).Methods(http.MethodGet)
	api.HandleFunc("/wait", s.handleWait).Methods(http.MethodGet)
	api.HandleFunc("/ocr/read", s.handleReadRegions).Methods(http.MethodGet)
	api.HandleFunc("/ocr/confirm", s.handleConfirm).Methods(http.MethodPost)
	api.HandleFunc("/ocr/expected", s.handleExpected).Methods(http.MethodPut)
	api.HandleFunc("/templates", s.handleCaptureTemplate).Methods(http.MethodPost)
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)

	if s.opts.ImagesDir != "" {
		imagesDir, _ := filepath.Abs(s.opts.ImagesDir)
		r.PathPrefix("/images/").Handler(http.StripPrefix("/images/", http.FileServer(http.Dir(imagesDir))))
	}

	return r
}

func (s *Server) OpenBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		s.log.Debug().Err(err).Str("url", url).Msg("could not open browser")
	}
}

// URL is the address a local browser should use.
func (s *Server) URL() string {
	addr := s.opts.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// Start starts the watcher and serves until Shutdown. The watcher stops
// when serving ends.
func (s *Server) Start() error {
	s.app.StartMonitoring()
	defer s.app.StopMonitoring()

	if s.opts.OpenBrowser {
		go func() {
			time.Sleep(1 * time.Second)
			s.OpenBrowser(s.URL())
		}()
	}

	s.log.Info().Str("url", s.URL()).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.app.StopMonitoring()
	return s.http.Shutdown(ctx)
}
