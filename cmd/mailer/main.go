// Command mailer drains the outbound mail queue.  It stands in for the
// external sender and appends one line per message to logs/mail.log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/logging"
	"github.com/iliyamo/studio-booking/internal/queue"
)

func main() {
	config.LoadDotEnv()
	mailCfg, err := config.LoadMail()
	if err != nil {
		log.Fatalf("mail config: %v", err)
	}
	logger, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := os.Getenv("MAIL_LOG_DIR")
	c := queue.NewConsumer(mailCfg.RabbitURL, mailCfg.Queue, dir, logger.Named("mailer"))
	logger.Info("mailer started", zap.String("queue", mailCfg.Queue))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("mailer", zap.Error(err))
	}
	logger.Info("mailer stopped")
}
