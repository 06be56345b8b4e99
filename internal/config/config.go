package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "BUILDLEDGER_"

type Application struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"db"`
	Finance  Finance  `koanf:"finance"`
}

type Server struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Pass     string `koanf:"pass"`
	Name     string `koanf:"name"`
	Schema   string `koanf:"schema"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
}

// Finance tunes the aggregation and sync behaviour.
type Finance struct {
	// SyncOnCostEvents enables the cache write-back after every cost event.
	SyncOnCostEvents bool `koanf:"synconcostevents"`
	// MaxSyncAttempts bounds re-aggregation when a cache write loses a version race.
	MaxSyncAttempts int `koanf:"maxsyncattempts"`
	// CurrencyScale is the number of decimal places of the minor currency unit.
	CurrencyScale int32 `koanf:"currencyscale"`
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
			Host:     "localhost",
			Port:     5432,
			User:     "buildledger",
			Pass:     "",
			Name:     "buildledger",
			Schema:   "buildledger",
			MaxConns: 25,
			MinConns: 5,
		},
		Finance: Finance{
			SyncOnCostEvents: true,
			MaxSyncAttempts:  3,
			CurrencyScale:    2,
		},
	}
}

func Load(path string) (Application, error) {
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

	if app.Finance.MaxSyncAttempts < 1 {
		log.Warnf("finance.maxsyncattempts=%d is not usable, falling back to 1", app.Finance.MaxSyncAttempts)
		app.Finance.MaxSyncAttempts = 1
	}

	return app, nil
}
