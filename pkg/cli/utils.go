package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/keybase/dbus"
	"github.com/keybase/go-keychain/secretservice"
)

const (
	service    = "invoice-backend"
	collection = secretservice.DefaultCollection

	keychainPrefix = "keychain:"
)

// EnvFilePath finds the env file before the arguments are parsed, so the
// file can still provide their values. --env-file wins over ENV_FILE.
func EnvFilePath(argv []string) string {
	for i, a := range argv {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(argv) {
			return argv[i+1]
		}
	}
	return os.Getenv("ENV_FILE")
}

// LoadEnvFile loads variables from path without overriding the ones already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %v", path, err)
	}
	return nil
}

// FillKeychainValues replaces every string field of args holding
// "keychain:<element>" with the secret stored under that element.
func FillKeychainValues[T any](args *T) error {
	var k *keychain
	v := reflect.ValueOf(args).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.String || !strings.HasPrefix(f.String(), keychainPrefix) {
			continue
		}
		if !f.CanSet() {
			return fmt.Errorf("set value for field %s", v.Type().Field(i).Name)
		}
		if k == nil {
			var err error
			k, err = openKeychain()
			if err != nil {
				return fmt.Errorf("init secret service: %v", err)
			}
		}
		secret, err := k.get(strings.TrimPrefix(f.String(), keychainPrefix))
		if err != nil {
			return err
		}
		f.SetString(secret)
	}
	return nil
}

type keychain struct {
	svc     *secretservice.SecretService
	session *secretservice.Session
}

func openKeychain() (*keychain, error) {
	svc, err := secretservice.NewService()
	if err != nil {
		return nil, fmt.Errorf("create keychain service: %v", err)
	}
	if err := svc.Unlock([]dbus.ObjectPath{collection}); err != nil {
		return nil, fmt.Errorf("unlock keychain service: %v", err)
	}
	session, err := svc.OpenSession(secretservice.AuthenticationDHAES)
	if err != nil {
		return nil, fmt.Errorf("open session: %v", err)
	}
	if session == nil {
		return nil, fmt.Errorf("no session")
	}
	return &keychain{svc: svc, session: session}, nil
}

func (k *keychain) get(element string) (string, error) {
	items, err := k.svc.SearchCollection(collection, secretservice.Attributes{
		"service": service,
		"element": element,
	})
	if err != nil {
		return "", fmt.Errorf("search keychain element: %v", err)
	}
	if len(items) < 1 {
		return "", fmt.Errorf("keychain element %s not found", element)
	}
	if len(items) > 1 {
		return "", fmt.Errorf("found more than one keychain elements for %s", element)
	}
	secret, err := k.svc.GetSecret(items[0], *k.session)
	if err != nil {
		return "", fmt.Errorf("get value from keychain: %v", err)
	}
	return string(secret), nil
}
