package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/kofuk/homedns/internal/entity"
)

type Config struct {
	EndpointURL  string        `envconfig:"HOMEDNS_ENDPOINT_URL" default:"https://api.ipify.org"`
	FetchTimeout time.Duration `envconfig:"HOMEDNS_FETCH_TIMEOUT" default:"10s"`
	AddressFile  string        `envconfig:"HOMEDNS_ADDRESS_FILE" default:"/var/lib/homedns/address"`
	StateDir     string        `envconfig:"HOMEDNS_STATE_DIR" default:"/var/lib/homedns"`

	RemoteHost        string        `envconfig:"HOMEDNS_REMOTE_HOST"`
	RemoteUser        string        `envconfig:"HOMEDNS_REMOTE_USER"`
	RemotePort        int           `envconfig:"HOMEDNS_REMOTE_PORT" default:"22"`
	RemotePath        string        `envconfig:"HOMEDNS_REMOTE_PATH" default:"/var/lib/homedns/"`
	TransferMethod    string        `envconfig:"HOMEDNS_TRANSFER_METHOD" default:"scp"`
	TransferTimeout   time.Duration `envconfig:"HOMEDNS_TRANSFER_TIMEOUT" default:"60s"`
	SSHKeyFile        string        `envconfig:"HOMEDNS_SSH_KEY_FILE"`
	SSHKnownHostsFile string        `envconfig:"HOMEDNS_SSH_KNOWN_HOSTS"`

	ServerAddressFile  string `envconfig:"HOMEDNS_SERVER_ADDRESS_FILE" default:"/var/lib/homedns/address"`
	ZoneDir            string `envconfig:"HOMEDNS_ZONE_DIR" default:"/etc/bind/zones"`
	TemplateFile       string `envconfig:"HOMEDNS_TEMPLATE_FILE" default:"db.home.template"`
	WorkFile           string `envconfig:"HOMEDNS_WORK_FILE" default:"db.home.work"`
	ZoneFile           string `envconfig:"HOMEDNS_ZONE_FILE" default:"db.home"`
	ZoneName           string `envconfig:"HOMEDNS_ZONE_NAME"`
	Placeholder        string `envconfig:"HOMEDNS_PLACEHOLDER" default:"HOMEREPLACEME"`
	StrictSubstitution bool   `envconfig:"HOMEDNS_STRICT_SUBSTITUTION" default:"true"`
	BumpSerial         bool   `envconfig:"HOMEDNS_BUMP_SERIAL" default:"true"`
	CheckZone          bool   `envconfig:"HOMEDNS_CHECK_ZONE" default:"true"`

	BackupEnabled     bool   `envconfig:"HOMEDNS_BACKUP" default:"true"`
	BackupDir         string `envconfig:"HOMEDNS_BACKUP_DIR" default:"/var/backups/homedns"`
	BackupKeep        int    `envconfig:"HOMEDNS_BACKUP_KEEP" default:"0"`
	BackupCompression string `envconfig:"HOMEDNS_BACKUP_COMPRESSION" default:"none"`
	BackupS3Bucket    string `envconfig:"HOMEDNS_BACKUP_S3_BUCKET"`
	BackupS3Prefix    string `envconfig:"HOMEDNS_BACKUP_S3_PREFIX" default:"homedns/"`
	S3ForcePathStyle  bool   `envconfig:"HOMEDNS_S3_FORCE_PATH_STYLE"`

	ReloadCommand string        `envconfig:"HOMEDNS_RELOAD_COMMAND" default:"rndc"`
	ReloadArgs    []string      `envconfig:"HOMEDNS_RELOAD_ARGS" default:"reload"`
	ReloadTimeout time.Duration `envconfig:"HOMEDNS_RELOAD_TIMEOUT" default:"30s"`
	NotifyTargets []string      `envconfig:"HOMEDNS_NOTIFY_TARGETS"`
	NotifyTimeout time.Duration `envconfig:"HOMEDNS_NOTIFY_TIMEOUT" default:"5s"`
	VerifyServer  string        `envconfig:"HOMEDNS_VERIFY_SERVER"`
	RecordName    string        `envconfig:"HOMEDNS_RECORD_NAME"`
	DoHProvider   string        `envconfig:"HOMEDNS_DOH_PROVIDER" default:"cloudflare"`

	Schedule     string `envconfig:"HOMEDNS_SCHEDULE" default:"@every 5m"`
	StatusListen string `envconfig:"HOMEDNS_STATUS_LISTEN"`

	Verbose bool `envconfig:"HOMEDNS_VERBOSE"`
}

func LoadConfig() (*Config, error) {
	var result Config
	if err := envconfig.Process("", &result); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidConfig, err)
	}
	return &result, nil
}

func (c *Config) TemplatePath() string {
	return filepath.Join(c.ZoneDir, c.TemplateFile)
}

func (c *Config) WorkPath() string {
	return filepath.Join(c.ZoneDir, c.WorkFile)
}

func (c *Config) ZonePath() string {
	return filepath.Join(c.ZoneDir, c.ZoneFile)
}

// ClientLockPath guards the stored address and the transfer that follows it.
func (c *Config) ClientLockPath() string {
	return c.AddressFile + ".lock"
}

// ServerLockPath guards render, deploy and reload of the zone.
func (c *Config) ServerLockPath() string {
	return filepath.Join(c.ZoneDir, "."+c.ZoneFile+".lock")
}

// ReloadPendingPath exists while a deployed zone still waits for a successful
// reload.
func (c *Config) ReloadPendingPath() string {
	return filepath.Join(c.ZoneDir, "."+c.ZoneFile+".reload-pending")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", entity.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) ValidateFetch() error {
	u, err := url.Parse(c.EndpointURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("HOMEDNS_ENDPOINT_URL must be an http(s) URL, got %q", c.EndpointURL)
	}
	if c.FetchTimeout <= 0 {
		return invalid("HOMEDNS_FETCH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) ValidateClient() error {
	if err := c.ValidateFetch(); err != nil {
		return err
	}
	if c.AddressFile == "" {
		return invalid("HOMEDNS_ADDRESS_FILE must not be empty")
	}
	if c.RemoteHost == "" {
		return invalid("HOMEDNS_REMOTE_HOST must not be empty")
	}
	if c.RemotePath == "" {
		return invalid("HOMEDNS_REMOTE_PATH must not be empty")
	}
	if c.RemotePort <= 0 || c.RemotePort > 65535 {
		return invalid("HOMEDNS_REMOTE_PORT out of range: %d", c.RemotePort)
	}
	switch c.TransferMethod {
	case "scp":
	case "ssh":
		if c.SSHKeyFile == "" {
			return invalid("HOMEDNS_SSH_KEY_FILE is required for the ssh transfer method")
		}
	default:
		return invalid("unknown HOMEDNS_TRANSFER_METHOD %q: valid values are scp, ssh", c.TransferMethod)
	}
	return nil
}

func (c *Config) ValidateRender() error {
	if c.ZoneDir == "" || c.TemplateFile == "" || c.WorkFile == "" || c.ZoneFile == "" {
		return invalid("zone directory and file names must not be empty")
	}
	if c.WorkFile == c.ZoneFile || c.WorkFile == c.TemplateFile || c.ZoneFile == c.TemplateFile {
		return invalid("template, work and zone file names must differ")
	}
	if strings.TrimSpace(c.Placeholder) == "" {
		return invalid("HOMEDNS_PLACEHOLDER must not be blank")
	}
	if c.BackupEnabled && c.BackupDir == "" {
		return invalid("HOMEDNS_BACKUP_DIR must not be empty when backups are enabled")
	}
	if c.BackupKeep < 0 {
		return invalid("HOMEDNS_BACKUP_KEEP must not be negative")
	}
	switch c.BackupCompression {
	case "none", "zstd", "xz":
	default:
		return invalid("unknown HOMEDNS_BACKUP_COMPRESSION %q: valid values are none, zstd, xz", c.BackupCompression)
	}
	return nil
}

func (c *Config) ValidateServer() error {
	if c.ServerAddressFile == "" {
		return invalid("HOMEDNS_SERVER_ADDRESS_FILE must not be empty")
	}
	if err := c.ValidateRender(); err != nil {
		return err
	}
	if c.ReloadCommand == "" {
		return invalid("HOMEDNS_RELOAD_COMMAND must not be empty")
	}
	if len(c.NotifyTargets) > 0 && c.ZoneName == "" {
		return invalid("HOMEDNS_ZONE_NAME is required when HOMEDNS_NOTIFY_TARGETS is set")
	}
	if c.VerifyServer != "" && c.RecordName == "" {
		return invalid("HOMEDNS_RECORD_NAME is required when HOMEDNS_VERIFY_SERVER is set")
	}
	return nil
}
