package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	backend "github.com/cathai/invoice-backend"
	"github.com/cathai/invoice-backend/pkg/catransport"
	"github.com/cathai/invoice-backend/pkg/cli"
	"github.com/cathai/invoice-backend/pkg/intake"
	"github.com/cathai/invoice-backend/pkg/jobs"
	"github.com/cathai/invoice-backend/pkg/logutils"
	"github.com/cathai/invoice-backend/pkg/metrics"
	"github.com/cathai/invoice-backend/pkg/mst"
	"github.com/cathai/invoice-backend/pkg/notifier"
	"github.com/cathai/invoice-backend/pkg/storage"
	"github.com/cathai/invoice-backend/pkg/storage/b2"
	"github.com/cathai/invoice-backend/pkg/storage/model"
	"github.com/cathai/invoice-backend/pkg/telegram"
)

var args struct {
	B2AccountId       string        `arg:"--b2-account-id,env:B2_ACCOUNT" help:"Account for B2 storage - when using the b2 storage"`
	B2AccountKey      string        `arg:"--b2-account-key,env:B2_KEY" help:"Key for B2 storage - when using the b2 storage"`
	B2BucketName      string        `arg:"--b2-bucket-name,env:B2_BUCKET_NAME" help:"Bucket Name for B2 storage - when using the b2 storage"`
	B2Passphrase      string        `arg:"env:B2_PASSPHRASE" help:"Passphrase for B2 storage (optional) - when using the b2 storage"`
	CaPath            string        `arg:"--ca-path,env:OUTBOUND_CA_PATH" help:"Extra CA bundle trusted for calls to Telegram and the tax registry"`
	DataDir           string        `arg:"--data-dir,env:DATA_DIR" default:"data" help:"Directory holding the invoice request list"`
	DigestSchedule    string        `arg:"--digest-schedule,env:DIGEST_SCHEDULE" default:"0 0 21 * * *" help:"Cron spec (with seconds) of the daily digest"`
	EnvFile           string        `arg:"--env-file,env:ENV_FILE" default:".env" help:"Read before the other options, which it can provide"`
	Host              string        `arg:"--host,env:HOST" default:"0.0.0.0"`
	LogFormat         string        `arg:"--log-format,env:LOG_FORMAT" default:"text"`
	LogLevel          string        `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	MstApiUrl         string        `arg:"--mst-api-url,env:MST_API_URL" default:"https://esgoo.net/api-mst/"`
	NotifyTimeout     time.Duration `arg:"--notify-timeout,env:NOTIFY_TIMEOUT" default:"10s"`
	Port              int           `arg:"-p,--port,env:PORT" default:"3000"`
	RecordStore       string        `arg:"--record-store,env:RECORD_STORE" default:"json" help:"json or bolt"`
	RetentionDays     int           `arg:"--retention-days,env:RETENTION_DAYS" default:"7"`
	RetentionSchedule string        `arg:"--retention-schedule,env:RETENTION_SCHEDULE" default:"0 0 2 * * *" help:"Cron spec (with seconds) of the photo cleanup"`
	StorageType       string        `arg:"--storage-type,env:STORAGE_TYPE" default:"fs" help:"Where invoice photos are kept: fs or b2"`
	StoreName         string        `arg:"--store-name,env:STORE_NAME" default:"Cửa hàng Cát Hải"`
	TelegramApiUrl    string        `arg:"--telegram-api-url,env:TELEGRAM_API_URL" default:"https://api.telegram.org"`
	TelegramBotToken  string        `arg:"--telegram-bot-token,env:TELEGRAM_BOT_TOKEN,required" help:"Bot token, keychain:<element> reads it from the keychain"`
	TelegramChatId    string        `arg:"--telegram-chat-id,env:TELEGRAM_CHAT_ID,required"`
	Timezone          string        `arg:"--timezone,env:TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	UploadsDir        string        `arg:"--uploads-dir,env:UPLOADS_DIR" default:"uploads" help:"Directory for invoice photos - when using the fs storage"`
}

var log = logrus.StandardLogger()

func main() {
	if err := cli.LoadEnvFile(cli.EnvFilePath(os.Args[1:])); err != nil {
		log.Fatalf("load env file: %v", err)
	}
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)
	logutils.SetLoggerFormat(args.LogFormat)

	loc, err := time.LoadLocation(args.Timezone)
	if err != nil {
		log.Fatalf("load timezone %s: %v", args.Timezone, err)
	}

	m := metrics.New()
	files := getStorage()
	records, err := storage.OpenRecordStore(args.RecordStore, args.DataDir, loc)
	if err != nil {
		log.Fatalf("open record store: %v", err)
	}
	defer records.Close()

	tg, err := telegram.New(args.TelegramApiUrl, args.TelegramBotToken, args.TelegramChatId)
	if err != nil {
		log.Fatalf("create telegram client: %v", err)
	}
	n, err := notifier.New(notifier.Config{
		Sender:    tg,
		Files:     files,
		StoreName: args.StoreName,
		Location:  loc,
		Timeout:   args.NotifyTimeout,
		Metrics:   m,
	})
	if err != nil {
		log.Fatalf("create notifier: %v", err)
	}

	lookup, err := mst.New(args.MstApiUrl)
	if err != nil {
		log.Fatalf("create tax registry client: %v", err)
	}

	if args.CaPath != "" {
		transport, err := catransport.New(args.CaPath)
		if err != nil {
			log.Fatalf("load CA bundle: %v", err)
		}
		tg.SetHttpTransport(transport)
		lookup.SetHttpTransport(transport)
	}

	scheduler := jobs.NewScheduler(loc, m)
	retention := jobs.NewRetention(files, time.Duration(args.RetentionDays)*24*time.Hour)
	retention.Metrics = m
	if err := scheduler.AddRetention(args.RetentionSchedule, retention); err != nil {
		log.Fatalf("schedule retention: %v", err)
	}
	if err := scheduler.AddDigest(args.DigestSchedule, jobs.NewDigest(records, n, loc)); err != nil {
		log.Fatalf("schedule digest: %v", err)
	}

	s, err := backend.New(backend.Config{
		Intake:   intake.New(files),
		Files:    files,
		Records:  records,
		Notifier: n,
		Lookup:   lookup,
		Metrics:  m,
	})
	if err != nil {
		log.Fatalf("create backend: %v", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(args.Host, strconv.Itoa(args.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Infof("received %s, shutting down", <-sig)

	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

func getStorage() model.AttachmentStorage {
	switch strings.ToLower(args.StorageType) {
	case "b2":
		return storage.SetupB2Storage(b2.Config{
			Account:    args.B2AccountId,
			BucketName: args.B2BucketName,
			Key:        args.B2AccountKey,
			Passphrase: args.B2Passphrase,
		})
	case "fs":
		return storage.SetupFsStorage(args.UploadsDir)
	}

	log.Fatalf("unknown storage type: %s", args.StorageType)
	return nil
}
