package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/emrgen/intake/internal/auth"
	"github.com/emrgen/intake/internal/compress"
	"github.com/emrgen/intake/internal/config"
	"github.com/emrgen/intake/internal/queue"
	"github.com/emrgen/intake/internal/service"
	"github.com/emrgen/intake/internal/store"
	"github.com/emrgen/intake/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func init() {
	rootCmd.AddCommand(workerCmd())
}

// workerCmd runs the local development extractor against the shared
// dispatch queue. Production deployments run the real worker instead.
func workerCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "worker",
		Short: "run the local extraction worker",
		Run: func(cmd *cobra.Command, args []string) {
			cnf := config.LoadConfig()
			db := config.GetDb(cnf)

			docStore := store.NewGormStore(db)
			if err := docStore.Migrate(); err != nil {
				logrus.Fatalf("error migrating database: %v", err)
			}

			jobQueue := queue.NewRedisJobQueue(cnf.RedisAddr)
			versions := service.NewVersionService(compress.NewGZip(), docStore)
			intake := service.NewIntakeService(docStore, auth.NewAllowAll(), jobQueue, versions, nil)

			ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
			defer cancel()

			if err := worker.NewExtractor(jobQueue, intake).Run(ctx); err != nil {
				logrus.Errorf("worker stopped with error: %v", err)
				os.Exit(1)
			}
		},
	}

	return command
}
