package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/cli"
	"github.com/cathai/invoice-backend/pkg/crypt"
	"github.com/cathai/invoice-backend/pkg/storage"
	"github.com/cathai/invoice-backend/pkg/storage/b2"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

type listCmd struct{}

type getCmd struct {
	Name string `arg:"positional,required" help:"Attachment name, e.g. invoice-1700000000000-<uuid>.jpg"`
}

// decryptCmd reads a photo downloaded straight from the bucket on stdin.
type decryptCmd struct{}

var args struct {
	B2AccountId  string `arg:"--b2-account-id,env:B2_ACCOUNT"`
	B2AccountKey string `arg:"--b2-account-key,env:B2_KEY"`
	B2BucketName string `arg:"--b2-bucket-name,env:B2_BUCKET_NAME"`
	B2Passphrase string `arg:"env:B2_PASSPHRASE"`
	EnvFile      string `arg:"--env-file,env:ENV_FILE" default:".env"`
	StorageType  string `arg:"--storage-type,env:STORAGE_TYPE" default:"fs"`
	UploadsDir   string `arg:"--uploads-dir,env:UPLOADS_DIR" default:"uploads"`

	List    *listCmd    `arg:"subcommand:list" help:"List stored invoice photos"`
	Get     *getCmd     `arg:"subcommand:get" help:"Write a stored invoice photo to stdout"`
	Decrypt *decryptCmd `arg:"subcommand:decrypt" help:"Decrypt an encrypted photo from stdin to stdout"`
}

var log = logrus.StandardLogger()

func main() {
	if err := cli.LoadEnvFile(cli.EnvFilePath(os.Args[1:])); err != nil {
		log.Fatalf("load env file: %v", err)
	}
	p := arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}

	switch {
	case args.List != nil:
		attachments, err := getStorage().List()
		if err != nil {
			log.Fatalf("unable to list: %v", err)
		}
		for _, a := range attachments {
			fmt.Printf("%s\t%d\t%s\n", a.Name, a.Size, a.ModTime.Format("2006-01-02 15:04:05"))
		}
	case args.Get != nil:
		r, err := getStorage().Retrieve(args.Get.Name)
		if err != nil {
			log.Fatalf("unable to retrieve %s: %v", args.Get.Name, err)
		}
		defer r.Close()
		if _, err := io.Copy(os.Stdout, r); err != nil {
			log.Fatalf("unable to copy: %v", err)
		}
	case args.Decrypt != nil:
		if args.B2Passphrase == "" {
			log.Fatalf("passphrase cannot be empty")
		}
		c, err := crypt.New(args.B2Passphrase)
		if err != nil {
			log.Fatalf("unable to create crypt: %v", err)
		}
		reader, err := c.Decrypt(os.Stdin)
		if err != nil {
			log.Fatalf("unable to decrypt: %v", err)
		}
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			log.Fatalf("unable to copy: %v", err)
		}
	default:
		p.WriteHelp(os.Stderr)
		os.Exit(2)
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
