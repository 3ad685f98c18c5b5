package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/email/mailgun"
	"github.com/willemschots/accounts/internal/email/postmark"
	"github.com/willemschots/accounts/internal/krypto"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
}

type dbConfig struct {
	dialect        db.Dialect
	file           string
	dsn            krypto.Secret
	migrate        bool
	blindIndexSalt krypto.Key
	encryptionKeys []krypto.Key
}

type emailConfig struct {
	driver   string
	service  email.ServiceConfig
	postmark postmark.Settings
	mailgun  mailgun.Settings
}

// config is the configuration for the server command.
type config struct {
	logLevel slog.Level
	http     httpConfig
	db       dbConfig
	account  account.ServiceConfig
	email    emailConfig
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		logLevel: slog.LevelInfo,
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
		},
		db: dbConfig{
			dialect: db.SQLite,
			file:    "accounts.db",
			migrate: true,
		},
		account: account.ServiceConfig{
			TokenExpiry: time.Hour * 24,
		},
		email: emailConfig{
			driver: "log",
			service: email.ServiceConfig{
				BaseURL: "http://localhost:8888",
			},
			postmark: postmark.Settings{
				APIURL:        must(url.Parse("https://api.postmarkapp.com/email")),
				MessageStream: "outbound",
			},
			mailgun: mailgun.Settings{
				APIHost:  "api.mailgun.net",
				Username: "api",
			},
		},
	}
}

// requiredKeys are the environment variables without a sensible default.
var requiredKeys = []string{
	"DB_BLIND_INDEX_SALT",
	"DB_ENCRYPTION_KEYS",
	"EMAIL_FROM",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"BASE_URL": func(v string, c *config) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.New("base url requires a scheme and a host")
		}
		c.email.service.BaseURL = v
		return nil
	},
	"LOG_LEVEL": func(v string, c *config) error {
		return c.logLevel.UnmarshalText([]byte(v))
	},
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"DB_DRIVER": func(v string, c *config) error {
		d, err := db.ParseDialect(v)
		if err != nil {
			return err
		}
		c.db.dialect = d
		return nil
	},
	"DB_FILENAME": func(v string, c *config) error {
		if v == "" {
			return errors.New("empty filename")
		}
		c.db.file = v
		return nil
	},
	"DB_DSN": func(v string, c *config) error {
		c.db.dsn = krypto.NewSecret(v)
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"DB_BLIND_INDEX_SALT": func(v string, c *config) error {
		k, err := krypto.ParseKey(v)
		if err != nil {
			return err
		}
		c.db.blindIndexSalt = k
		return nil
	},
	"DB_ENCRYPTION_KEYS": func(v string, c *config) error {
		// The last key encrypts, earlier keys only decrypt.
		keys, err := krypto.ParseKeys(v)
		if err != nil {
			return err
		}
		c.db.encryptionKeys = keys
		return nil
	},
	"ACCOUNT_TOKEN_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.account.TokenExpiry, 0, math.MaxInt64)
	},
	"ACCOUNT_MIN_PASSWORD_LENGTH": func(v string, c *config) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n < 0 || n > 512 {
			return fmt.Errorf("%d not in range [0, 512] (inclusive)", n)
		}
		c.account.MinPasswordLength = n
		return nil
	},
	"ACCOUNT_CONCEAL_STATE": func(v string, c *config) error {
		return confBool(v, &c.account.ConcealAccountState)
	},
	"EMAIL_DRIVER": func(v string, c *config) error {
		switch v {
		case "log", "postmark", "mailgun":
			c.email.driver = v
			return nil
		default:
			return fmt.Errorf("unknown email driver %q", v)
		}
	},
	"EMAIL_FROM": func(v string, c *config) error {
		addr, err := email.ParseAddress(v)
		if err != nil {
			return err
		}
		c.email.service.From = addr
		return nil
	},
	"POSTMARK_API_URL": func(v string, c *config) error {
		u, err := url.ParseRequestURI(v)
		if err != nil {
			return err
		}
		c.email.postmark.APIURL = u
		return nil
	},
	"POSTMARK_SERVER_TOKEN": func(v string, c *config) error {
		c.email.postmark.ServerToken = krypto.NewSecret(v)
		return nil
	},
	"POSTMARK_MESSAGE_STREAM": func(v string, c *config) error {
		c.email.postmark.MessageStream = v
		return nil
	},
	"MAILGUN_API_HOST": func(v string, c *config) error {
		c.email.mailgun.APIHost = v
		return nil
	},
	"MAILGUN_DOMAIN": func(v string, c *config) error {
		c.email.mailgun.Domain = v
		return nil
	},
	"MAILGUN_USERNAME": func(v string, c *config) error {
		c.email.mailgun.Username = v
		return nil
	},
	"MAILGUN_PASSWORD": func(v string, c *config) error {
		c.email.mailgun.Password = krypto.NewSecret(v)
		return nil
	},
}

// loadDotEnv loads environment variables from the file at path, if it exists.
// Variables that are already set in the environment are not overwritten.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
//
// All problems are reported at once.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error
	for _, key := range requiredKeys {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing required env variable %s", key))
		}
	}

	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	if c.db.dialect == db.Postgres && c.db.dsn.IsZero() {
		errs = append(errs, errors.New("env variable DB_DSN is required when DB_DRIVER is pgx"))
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
