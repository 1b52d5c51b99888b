package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/intake/internal/auth"
	"github.com/emrgen/intake/internal/cache"
	"github.com/emrgen/intake/internal/compress"
	"github.com/emrgen/intake/internal/config"
	"github.com/emrgen/intake/internal/jobs"
	"github.com/emrgen/intake/internal/queue"
	"github.com/emrgen/intake/internal/service"
	"github.com/emrgen/intake/internal/store"
	"github.com/gobuffalo/packr"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server represents the intake server
type Server struct {
	httpPort string
}

// NewServer creates a new server
func NewServer(httpPort string) *Server {
	return &Server{
		httpPort: httpPort,
	}
}

// Start starts the server
func (s *Server) Start() {
	if err := Start(s.httpPort); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start starts the http server and the background task executor
func Start(httpPort string) error {
	httpPort = ":" + httpPort

	cnf := config.LoadConfig()
	db := config.GetDb(cnf)

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	docStore := store.NewGormStore(db)
	if err = docStore.Migrate(); err != nil {
		return err
	}

	// NOTE: swap in the real authorization client here, insecure mode
	// grants every actor access
	authorizer := auth.NewAllowAll()

	jobQueue := queue.NewRedisJobQueue(cnf.RedisAddr)
	statuses := cache.NewRedisStatusCache(cnf.RedisAddr)

	versions := service.NewVersionService(compress.NewGZip(), docStore)
	intake := service.NewIntakeService(docStore, authorizer, jobQueue, versions, statuses)

	handlers := NewHandlers(intake, versions, cnf.StuckJobAge)

	mux := http.NewServeMux()
	handlers.Register(mux)

	openapiDocs := packr.NewBox("../../docs/v1")
	docsPath := "/v1/docs/"
	mux.Handle(docsPath, http.StripPrefix(docsPath, http.FileServer(openapiDocs)))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:    httpPort,
		Handler: c.Handler(RequestTime(mux)),
	}

	executor := jobs.NewTaskExecutor([]jobs.CronTask{
		jobs.NewStuckJobScanner(docStore, cnf.StuckJobAge),
	})
	executor.Run()

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting intake api on: ", httpPort)
		logrus.Info("click on the following link to view the API documentation: http://localhost", httpPort, "/v1/docs/")
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting intake api: %v", err)
			}
		}
		logrus.Infof("intake api stopped")
	}()

	time.Sleep(1 * time.Second)
	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	executor.Stop()
	if err = restServer.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error stopping intake api: %v", err)
	}

	wg.Wait()

	return nil
}
