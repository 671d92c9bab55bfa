// Package config reads shoplist settings from SHOPLIST_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/shoplist/internal/backup"
	"github.com/dukerupert/shoplist/internal/shopping"
)

type Config struct {
	Port       string
	DBPath     string
	LogLevel   string
	LogFormat  string
	IDPolicy   shopping.IDPolicy
	APIKeyHash string
	DraftTTL   time.Duration
	// WriteLimit is the number of mutating requests allowed per client IP
	// per minute. Zero disables limiting.
	WriteLimit int
	// WSOrigins restricts websocket origins. Empty accepts any origin.
	WSOrigins []string
	// TrustedProxies lists the reverse proxies whose CF-Connecting-IP and
	// X-Forwarded-For headers name the client. Empty trusts no headers.
	TrustedProxies []netip.Prefix
	Backup         backup.Config
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error

	policy, err := shopping.ParseIDPolicy(getenv("SHOPLIST_ID_POLICY"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOPLIST_ID_POLICY: %w", err))
	}

	ttl, err := time.ParseDuration(env("SHOPLIST_DRAFT_TTL", "30m"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOPLIST_DRAFT_TTL: %w", err))
	}

	limit, err := strconv.Atoi(env("SHOPLIST_WRITE_LIMIT", "60"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOPLIST_WRITE_LIMIT: %w", err))
	}

	backupInterval, err := time.ParseDuration(env("SHOPLIST_BACKUP_INTERVAL", "24h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOPLIST_BACKUP_INTERVAL: %w", err))
	}

	backupKeep, err := strconv.Atoi(env("SHOPLIST_BACKUP_KEEP", "14"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOPLIST_BACKUP_KEEP: %w", err))
	}

	var origins []string
	for _, o := range strings.Split(getenv("SHOPLIST_WS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	var proxies []netip.Prefix
	for _, p := range strings.Split(getenv("SHOPLIST_TRUSTED_PROXIES"), ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		prefix, err := parseProxy(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("SHOPLIST_TRUSTED_PROXIES: %w", err))
			continue
		}
		proxies = append(proxies, prefix)
	}

	cfg := &Config{
		Port:           env("SHOPLIST_PORT", "8080"),
		DBPath:         strings.TrimSpace(getenv("SHOPLIST_DB_PATH")),
		LogLevel:       strings.ToLower(env("SHOPLIST_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(env("SHOPLIST_LOG_FORMAT", "text")),
		IDPolicy:       policy,
		APIKeyHash:     strings.TrimSpace(getenv("SHOPLIST_API_KEY_HASH")),
		DraftTTL:       ttl,
		WriteLimit:     limit,
		WSOrigins:      origins,
		TrustedProxies: proxies,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  strings.TrimSpace(getenv("SHOPLIST_BACKUP_ENDPOINT")),
				Bucket:    strings.TrimSpace(getenv("SHOPLIST_BACKUP_BUCKET")),
				Region:    strings.TrimSpace(getenv("SHOPLIST_BACKUP_REGION")),
				AccessKey: strings.TrimSpace(getenv("SHOPLIST_BACKUP_ACCESS_KEY")),
				SecretKey: strings.TrimSpace(getenv("SHOPLIST_BACKUP_SECRET_KEY")),
			},
			Prefix:     strings.TrimSpace(getenv("SHOPLIST_BACKUP_PREFIX")),
			Passphrase: getenv("SHOPLIST_BACKUP_PASSPHRASE"),
			Interval:   backupInterval,
			Keep:       backupKeep,
		},
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("load config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseProxy accepts a CIDR prefix or a single address.
func parseProxy(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Validate checks value ranges that parsing alone does not catch.
func (c *Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.DraftTTL <= 0 {
		errs = append(errs, fmt.Errorf("draft ttl must be positive, got %s", c.DraftTTL))
	}
	if c.WriteLimit < 0 {
		errs = append(errs, fmt.Errorf("write limit must not be negative, got %d", c.WriteLimit))
	}
	if c.APIKeyHash != "" && !strings.HasPrefix(c.APIKeyHash, "$2") {
		errs = append(errs, errors.New("api key hash is not a bcrypt hash"))
	}
	if c.Backup.Enabled() && !c.Persistent() {
		errs = append(errs, errors.New("backups need SHOPLIST_DB_PATH"))
	}
	if c.Backup.Interval < 0 || c.Backup.Keep < 0 {
		errs = append(errs, errors.New("backup interval and keep must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Persistent reports whether state is saved to disk.
func (c *Config) Persistent() bool {
	return c.DBPath != ""
}
