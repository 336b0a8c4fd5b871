package fifolink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/platform"
)

const httpTimeoutsMs = 3000
const maxConsoleRead = 4096
const maxConsoleWrite = 64 * 1024

// Console serves token protected http endpoints for the stream:
//
//	GET  /status/token/:token
//	GET  /read/token/:token
//	POST /write/token/:token
type Console struct {
	Token    string
	HttpAddr string

	stream *Stream
	logger *log.Logger
}

type consoleStatus struct {
	Platform   string        `json:"platform"`
	KeyPressed bool          `json:"keypressed"`
	Stats      StatsSnapshot `json:"stats"`
}

func (con *Console) Handler(s *Stream) http.Handler {
	con.stream = s
	con.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "Console 🖥: ",
		Level:  log.GetLevel(),
	})

	handler := httprouter.New()
	handler.GET("/status/token/:token", con.authorized(con.handleStatus))
	handler.GET("/read/token/:token", con.authorized(con.handleRead))
	handler.POST("/write/token/:token", con.authorized(con.handleWrite))
	return handler
}

func (con *Console) authorized(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if !strings.EqualFold(p.ByName("token"), con.Token) {
			http.Error(w, "token mismatch", http.StatusUnauthorized)
			return
		}
		next(w, r, p)
	}
}

func (con *Console) handleStatus(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	pressed, err := con.stream.KeyPressed()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(consoleStatus{
		Platform:   platform.Selected.String(),
		KeyPressed: pressed,
		Stats:      con.stream.Stats.Snapshot(),
	})
}

func (con *Console) handleRead(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	data, err := con.stream.Drain(maxConsoleRead)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (con *Console) handleWrite(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConsoleWrite))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := con.stream.WriteContext(r.Context(), body)
	if err != nil {
		con.logger.Warn("console write incomplete", "written", n, "size", len(body), "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTxFull) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"written": n})
}

// Run listens on HttpAddr until ctx ends.
func (con *Console) Run(ctx context.Context, s *Stream) error {
	httpTimeout := httpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              con.HttpAddr,
		Handler:           con.Handler(s),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	con.logger.Info("console listening", "addr", con.HttpAddr)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	}
}
