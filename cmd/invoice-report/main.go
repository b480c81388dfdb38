package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/cli"
	"github.com/cathai/invoice-backend/pkg/jobs"
	"github.com/cathai/invoice-backend/pkg/logutils"
	"github.com/cathai/invoice-backend/pkg/notifier"
	"github.com/cathai/invoice-backend/pkg/storage"
	"github.com/cathai/invoice-backend/pkg/telegram"
)

var args struct {
	DataDir          string `arg:"--data-dir,env:DATA_DIR" default:"data"`
	EnvFile          string `arg:"--env-file,env:ENV_FILE" default:".env"`
	LogLevel         string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	RecordStore      string `arg:"--record-store,env:RECORD_STORE" default:"json"`
	SendDigest       bool   `arg:"--send-digest" help:"Send today's digest to the chat instead of printing"`
	TelegramApiUrl   string `arg:"--telegram-api-url,env:TELEGRAM_API_URL" default:"https://api.telegram.org"`
	TelegramBotToken string `arg:"--telegram-bot-token,env:TELEGRAM_BOT_TOKEN"`
	TelegramChatId   string `arg:"--telegram-chat-id,env:TELEGRAM_CHAT_ID"`
	Timezone         string `arg:"--timezone,env:TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	Today            bool   `arg:"--today" help:"Only print today's requests"`
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

	loc, err := time.LoadLocation(args.Timezone)
	if err != nil {
		log.Fatalf("load timezone %s: %v", args.Timezone, err)
	}
	records, err := storage.OpenRecordStore(args.RecordStore, args.DataDir, loc)
	if err != nil {
		log.Fatalf("open record store: %v", err)
	}
	defer records.Close()

	if args.SendDigest {
		tg, err := telegram.New(args.TelegramApiUrl, args.TelegramBotToken, args.TelegramChatId)
		if err != nil {
			log.Fatalf("create telegram client: %v", err)
		}
		n, err := notifier.New(notifier.Config{
			Sender:   tg,
			Location: loc,
		})
		if err != nil {
			log.Fatalf("create notifier: %v", err)
		}
		count, err := jobs.NewDigest(records, n, loc).Run(context.Background())
		if err != nil {
			log.Fatalf("send digest: %v", err)
		}
		log.Infof("sent digest with %d requests", count)
		return
	}

	list := records.All()
	if args.Today {
		list = records.Today()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
