package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"DEBUG"`
	HTTPAddress string        `yaml:"http_address" env:"HTTP_ADDRESS" env-default:":8080"`
	DBAddress   string        `yaml:"db_address" env:"DB_ADDRESS" env-required:"true"`
	AuthSecret  string        `yaml:"auth_secret" env:"AUTH_SECRET" env-required:"true"`
	Timeout     time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"10s"`
}

func MustLoad(configPath string) Config {
	var cfg Config

	// пустой путь - только env
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read env: %s", err)
		}
		return cfg
	}

	// пробуем файл, если его нет - env
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				log.Fatalf("cannot read env: %s", err)
			}
			return cfg
		}
		log.Fatalf("cannot read config %q: %s", configPath, err)
	}

	return cfg
}
