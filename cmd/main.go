package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	custody "custody_payments_back"
	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/events"
	"custody_payments_back/pkg/feeoracle"
	"custody_payments_back/pkg/handler"
	"custody_payments_back/pkg/locker"
	"custody_payments_back/pkg/queue"
	"custody_payments_back/pkg/repository"
	"custody_payments_back/pkg/service"
	"custody_payments_back/pkg/utils"
	"custody_payments_back/pkg/worker"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.Infoln("Запуск сервера")
	if err := godotenv.Load(); err != nil {
		logrus.Infof("Ошибка инициализации переменных окружения .env: %s \n", err)
	}

	if err := InitConfig(); err != nil {
		logrus.Fatalf("Ошибка (viper) при инициализации конфига .yaml: %s \n", err.Error())
	}
	logrus.Infoln("Конфиг YAML инициализирован")

	db, err := repository.NewPostgresDB(repository.Config{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: os.Getenv("DB_PASS"),
		DBName:   viper.GetString("db.dbname"),
		SSLMode:  viper.GetString("db.sslmode"),
	})
	if err != nil {
		logrus.Fatalf("Ошибка при инициализации базы данных: %s \n", err.Error())
	}
	logrus.Info("База данных подключена")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: os.Getenv("REDIS_PASS"),
		DB:       viper.GetInt("redis.db"),
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Ошибка при подключении к redis: %s \n", err.Error())
	}
	logrus.Info("Redis подключен")

	// ключи локов уже несут свои неймспейсы, префикс общий
	redisLocker := locker.NewRedisLocker(redisClient, "locks:")
	deliveryQueue := queue.NewRedisQueue(redisClient, viper.GetString("redis.queue_prefix"))

	repos := repository.NewRepository(db, redisLocker)

	sender := composer.NewHTTPSender(
		viper.GetString("composer.url"),
		os.Getenv("COMPOSER_API_KEY"),
		viper.GetDuration("composer.timeout"),
	)
	feePriority := feeoracle.NewHTTPFeePriority(
		viper.GetString("feeoracle.url"),
		os.Getenv("FEEORACLE_API_KEY"),
	)
	alerter := utils.NewAlertMailer(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		viper.GetString("mail.from"),
		os.Getenv("SMTP_PASS"),
		viper.GetString("mail.to"),
	)

	services := service.NewService(service.Deps{
		Repos:          repos,
		AccountHandler: service.NewLedgerAccountHandler(repos.Account, repos.TXO),
		AddressLocker:  redisLocker,
		Sender:         sender,
		FeePriority:    feePriority,
		Alerter:        alerter,
		OutQueue:       deliveryQueue,
		LockTimeout:    viper.GetDuration("locks.timeout"),
		Network:        viper.GetString("bitcoin.network"),
		TestMode:       false,
	})
	handlers := handler.NewHandler(services, repos)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// порядок подписки важен: сначала леджер, потом нотификации
	bus := events.NewBus()
	for _, topic := range []string{events.TxReceived, events.TxConfirmed} {
		bus.Subscribe(topic, func(txEvent events.TxEvent) {
			if err := services.TXOs.IngestParsedTransaction(txEvent.Tx, txEvent.Confirmations); err != nil {
				logrus.Errorf("error.ingest: %s", err)
			}
		})
		bus.Subscribe(topic, services.Notifications.HandleTxEvent)
		bus.Subscribe(topic, services.ConsoleLog.HandleTxEvent)
	}

	if viper.GetBool("worker.enabled") {
		deliveryWorker := worker.NewDeliveryWorker(
			deliveryQueue,
			repos.Notification,
			resty.New().SetTimeout(viper.GetDuration("worker.request_timeout")),
			viper.GetDuration("worker.retry_delay"),
		)
		go deliveryWorker.Run(ctx)
	}

	go runPruneTicker(ctx, services)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	srv := new(custody.Server)
	if err := srv.Run(viper.GetString("server.port"), handlers.InitRoute()); err != nil {
		logrus.Fatalf("Ошибка при запуске сервера: %s \n", err)
	}
}

// runPruneTicker раз в сутки чистит потраченные выходы старше горизонта хранения
func runPruneTicker(ctx context.Context, services *service.Service) {
	retention := viper.GetDuration("retention.spent_txos")
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := services.TXOs.PruneSpent(retention); err != nil {
				logrus.Errorf("error.prune: %s", err)
			}
		}
	}
}

func InitConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}
