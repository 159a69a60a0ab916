package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBPath      string
	CORSOrigins []string
	Redis       RedisConfig
	Auth        AuthConfig
	Graph       GraphConfig
	Mail        MailConfig
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	TLS      bool
}

type AuthConfig struct {
	ClientID      string
	ClientSecret  string
	Authority     string
	Scopes        []string
	SessionCookie string
	// Prefixes for the keys the login web app writes into the shared Redis.
	SessionKeyPrefix string
	UserKeyPrefix    string
}

type GraphConfig struct {
	SiteID           string
	DriveID          string
	ParentFolderID   string
	AttachmentFolder string
}

type MailConfig struct {
	ConnectionString string
	Sender           string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads configuration from the environment, seeding it from a .env file
// when one is present (the production deployment keeps its secrets there).
func Load() Config {
	_ = godotenv.Load()

	origins := splitList(getEnv("CORS_ORIGINS", ""))
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	scopes := splitList(getEnv("SCOPE", ""))
	if len(scopes) == 0 {
		scopes = []string{"https://graph.microsoft.com/.default"}
	}

	return Config{
		Addr:        getEnv("ADDR", ":8000"),
		DBPath:      getEnv("DB_PATH", "dockyard.db"),
		CORSOrigins: origins,
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TLS:      strings.EqualFold(getEnv("REDIS_TLS", "false"), "true"),
		},
		Auth: AuthConfig{
			ClientID:         getEnv("CLIENT_ID", ""),
			ClientSecret:     getEnv("CLIENT_SECRET", ""),
			Authority:        getEnv("AUTHORITY", ""),
			Scopes:           scopes,
			SessionCookie:    getEnv("SESSION_COOKIE_NAME", "session"),
			SessionKeyPrefix: getEnv("SHARED_KEY_PREFIX", "shared:ms_oid_by_session:"),
			UserKeyPrefix:    getEnv("SHARED_USER_PREFIX", "shared:ms_oid_by_user:"),
		},
		Graph: GraphConfig{
			SiteID:           getEnv("SITE_ID", ""),
			DriveID:          getEnv("DRIVE_ID", ""),
			ParentFolderID:   getEnv("PARENT_FOLDER_ID", ""),
			AttachmentFolder: getEnv("ATTACHMENT_FOLDER_ID", ""),
		},
		Mail: MailConfig{
			ConnectionString: getEnv("COMMUNICATION_CONNECTION_STRING", ""),
			Sender:           getEnv("MAIL_DEFAULT_SENDER", ""),
		},
	}
}
