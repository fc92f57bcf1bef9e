package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "BUDGET_"

type Application struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"db"`
	Session  Session  `koanf:"session"`
	Currency Currency `koanf:"currency"`
	Upload   Upload   `koanf:"upload"`
}

type Server struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Session struct {
	// TTL is how long a session may stay idle before it is purged.
	TTL time.Duration `koanf:"ttl"`
	// PurgeSchedule is a standard 5-field cron expression.
	PurgeSchedule string `koanf:"purgeschedule"`
}

type Currency struct {
	Reference string `koanf:"reference"`
	// Rates holds units of each currency per one unit of the reference currency.
	Rates map[string]float64 `koanf:"rates"`
}

type Upload struct {
	MaxBytes int64 `koanf:"maxbytes"`
}

func Defaults() Application {
	return Application{
		Server: Server{
			Addr:         ":8181",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "budget",
			Pass:   "",
			Name:   "budget",
			Schema: "budget",
		},
		Session: Session{
			TTL:           24 * time.Hour,
			PurgeSchedule: "*/15 * * * *",
		},
		Currency: Currency{
			Reference: "JOD",
			Rates: map[string]float64{
				"USD": 1.41,
				"EUR": 1.30,
			},
		},
		Upload: Upload{
			MaxBytes: 10 << 20,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and BUDGET_
// environment variables, in that order. A .env file in the working directory is read into the
// environment first when present.
func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Application{}, fmt.Errorf("failed loading .env file: %w", err)
		}
	} else {
		log.Info("Loaded environment from .env")
	}

	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
