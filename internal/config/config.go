package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"neptunecharge/internal/models"
	libconfig "neptunecharge/libs/config"
)

const (
	defaultBaseURL    = "http://www.szlzxn.cn"
	defaultDevAddress = "50559141"
	defaultTargetPort = "11"
	defaultTimeout    = 10 * time.Second
	defaultUserAgent  = "Mozilla/5.0 (Linux; Android 16; 24117RK2CC Build/BP2A.250605.031.A3; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/142.0.7444.173 Mobile Safari/537.36 XWEB/1420113 MMWEBSDK/20250904 MMWEBID/7686 MicroMessenger/8.0.65.2960(0x28004153) WeChat/arm64 Weixin NetType/5G Language/zh_CN ABI/arm64"

	exampleHint = "set it in .env (see .env.example) or the environment"
)

// ErrConfig marks startup configuration problems.
var ErrConfig = errors.New("config")

// Config defines neptune-charge configuration.
type Config struct {
	Neptune struct {
		BaseURL string `yaml:"baseUrl" env:"NEPTUNE_BASE_URL" validate:"required,url"`
		OpenID  string `yaml:"openId" env:"NEPTUNE_OPEN_ID" validate:"required"`
		AreaID  string `yaml:"areaId" env:"NEPTUNE_AREA_ID" validate:"required"`
	} `yaml:"neptune"`
	Target struct {
		DevAddress string `yaml:"devAddress" env:"NEPTUNE_DEV_ADDRESS" validate:"required"`
		Port       string `yaml:"port" env:"NEPTUNE_TARGET_PORT" validate:"required,numeric"`
	} `yaml:"target"`
	Charge struct {
		Amount     int64                 `yaml:"amount" env:"NEPTUNE_CHARGE_AMOUNT" validate:"gt=0"`
		MinBalance int64                 `yaml:"minBalance" env:"NEPTUNE_MIN_BALANCE" validate:"gte=0"`
		Defaults   models.ChargeDefaults `yaml:"defaults"`
	} `yaml:"charge"`
	HTTPClient struct {
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"NEPTUNE_HTTP_TIMEOUT"`
		UserAgent      string `yaml:"userAgent" env:"NEPTUNE_USER_AGENT"`
	} `yaml:"httpClient"`

	session models.Session
}

// Load reads configuration and fails fast on missing identity settings.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.Neptune.BaseURL = defaultBaseURL
	cfg.Target.DevAddress = defaultDevAddress
	cfg.Target.Port = defaultTargetPort
	cfg.Charge.Amount = 100
	cfg.Charge.MinBalance = 100
	cfg.Charge.Defaults = models.DefaultChargeDefaults()
	cfg.HTTPClient.TimeoutSeconds = int(defaultTimeout / time.Second)
	cfg.HTTPClient.UserAgent = defaultUserAgent

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Neptune.OpenID = strings.TrimSpace(c.Neptune.OpenID)
	c.Neptune.AreaID = strings.TrimSpace(c.Neptune.AreaID)
	c.Neptune.BaseURL = strings.TrimRight(strings.TrimSpace(c.Neptune.BaseURL), "/")

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrConfig, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	areaID, err := strconv.Atoi(c.Neptune.AreaID)
	if err != nil {
		return fmt.Errorf("%w: NEPTUNE_AREA_ID %q is not an integer; %s", ErrConfig, c.Neptune.AreaID, exampleHint)
	}

	c.session = models.Session{OpenID: c.Neptune.OpenID, AreaID: areaID}
	return nil
}

func describe(fe validator.FieldError) string {
	name := fe.Namespace()
	switch fe.StructField() {
	case "OpenID":
		name = "NEPTUNE_OPEN_ID"
	case "AreaID":
		name = "NEPTUNE_AREA_ID"
	case "BaseURL":
		name = "NEPTUNE_BASE_URL"
	case "DevAddress":
		name = "NEPTUNE_DEV_ADDRESS"
	case "Port":
		name = "NEPTUNE_TARGET_PORT"
	}
	if fe.Tag() == "required" {
		return fmt.Sprintf("%s is required; %s", name, exampleHint)
	}
	return fmt.Sprintf("%s is invalid (%s); %s", name, fe.Tag(), exampleHint)
}

// Session returns the resolved identity, immutable for the run.
func (c *Config) Session() models.Session {
	return c.session
}

// TargetPortIndex parses the configured port as a zero-based index.
func (c *Config) TargetPortIndex() (int, error) {
	return strconv.Atoi(c.Target.Port)
}

// HTTPTimeout returns the per-call timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.HTTPClient.TimeoutSeconds) * time.Second
}
