package config

import (
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"github.com/ync-lab/intranet/pkg/logutils"
)

const defaultTimeZone = "Asia/Seoul"

type Config struct {
	// Port Settings
	Host       string `json:"host"`       // The public base URL of the intranet.
	ServerAddr string `json:"serverAddr"` // The address the server endpoint binds to.
	// TimeZone is used to read dates and wall clock times of schedules
	TimeZone string `json:"timeZone" env:"INTRANET_TIME_ZONE"`

	Log struct {
		Level string `json:"level" env:"INTRANET_LOG_LEVEL"`
		logutils.FileOptions
	} `json:"log"`

	Auth struct {
		AccessTokenSecret      string `json:"accessTokenSecret" env:"INTRANET_ACCESS_TOKEN_SECRET"`
		RefreshTokenSecret     string `json:"refreshTokenSecret" env:"INTRANET_REFRESH_TOKEN_SECRET"`
		AccessTokenExpiryHour  int    `json:"accessTokenExpiryHour"`
		RefreshTokenExpiryHour int    `json:"refreshTokenExpiryHour"`
	} `json:"auth"`

	Postgres struct {
		Host     string `json:"host" env:"INTRANET_DB_HOST"`
		Port     string `json:"port" env:"INTRANET_DB_PORT"`
		DBName   string `json:"dbname" env:"INTRANET_DB_NAME"`
		User     string `json:"user" env:"INTRANET_DB_USER"`
		Password string `json:"password" env:"INTRANET_DB_PASSWORD"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
		// Replicas are read-only hosts sharing port, user and password with the primary
		Replicas []string `json:"replicas"`
	} `json:"postgres"`

	Storage struct {
		UploadDir string `json:"uploadDir" env:"INTRANET_UPLOAD_DIR"`
	} `json:"storage"`

	NaverWorks struct {
		ClientID        string `json:"clientId" env:"NAVER_WORKS_CLIENT_ID"`
		ClientSecret    string `json:"clientSecret" env:"NAVER_WORKS_CLIENT_SECRET"`
		RedirectURI     string `json:"redirectUri" env:"NAVER_WORKS_REDIRECT_URI"`
		AuthURL         string `json:"authUrl"`
		TokenURL        string `json:"tokenUrl"`
		UserInfoURL     string `json:"userInfoUrl"`
		SuccessRedirect string `json:"successRedirect"` // Page receiving the issued tokens.
		FailureRedirect string `json:"failureRedirect"` // Login page showing ?error=<code>.
	} `json:"naverWorks"`

	SMTP struct {
		Enable   bool   `json:"enable"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password" env:"INTRANET_SMTP_PASSWORD"`
		From     string `json:"from"`
	} `json:"smtp"`

	Expense struct {
		// ManagementDepartment must read every submitted expense
		ManagementDepartment string `json:"managementDepartment"`
	} `json:"expense"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// Location returns the configured time zone, Asia/Seoul by default
func (c *Config) Location() *time.Location {
	name := c.TimeZone
	if name == "" {
		name = defaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		klog.Warningf("unknown time zone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// initConfig reads ./etc/debug-config.yaml (or INTRANET_DEBUG_CONFIG_PATH) in debug mode
// and the mounted /etc/config/config.yaml otherwise. Secrets set in the environment
// override the file.
func initConfig() *Config {
	var configPath string
	if IsDebugMode() {
		if os.Getenv("INTRANET_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("INTRANET_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	config, err := Load(configPath)
	if err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	return config
}

// Load reads a configuration file and applies defaults and environment overrides
func Load(filePath string) (*Config, error) {
	config := &Config{}
	if err := readConfig(filePath, config); err != nil {
		return nil, err
	}
	if err := env.Parse(config); err != nil {
		return nil, err
	}
	config.setDefaults()
	return config, nil
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func (c *Config) setDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8088"
	}
	if c.TimeZone == "" {
		c.TimeZone = defaultTimeZone
	}
	if c.Auth.AccessTokenExpiryHour == 0 {
		c.Auth.AccessTokenExpiryHour = 1
	}
	if c.Auth.RefreshTokenExpiryHour == 0 {
		c.Auth.RefreshTokenExpiryHour = 168
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "./uploads"
	}
	if c.Expense.ManagementDepartment == "" {
		c.Expense.ManagementDepartment = "경영관리 Unit"
	}
	if c.NaverWorks.AuthURL == "" {
		c.NaverWorks.AuthURL = "https://auth.worksmobile.com/oauth2/v2.0/authorize"
	}
	if c.NaverWorks.TokenURL == "" {
		c.NaverWorks.TokenURL = "https://auth.worksmobile.com/oauth2/v2.0/token"
	}
	if c.NaverWorks.UserInfoURL == "" {
		c.NaverWorks.UserInfoURL = "https://www.worksapis.com/v1.0/users/me"
	}
}
