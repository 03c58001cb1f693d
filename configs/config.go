package config

import "os"

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

type Config struct {
	PostgresURI string
	RedisURI    string
	FrontendURL string
	R2          R2
	SecretKey   string
	CookieName  string
	// DispatchSpec is the cron schedule of the due-post sweep.
	DispatchSpec string
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		SecretKey:    getEnv("SECRET_KEY", ""),
		CookieName:   getEnv("COOKIE_NAME", "pulseboard_session"),
		DispatchSpec: getEnv("DISPATCH_CRON_SPEC", "@every 0h1m0s"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
