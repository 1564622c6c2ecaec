package config

import "os"

type Config struct {
	Port string
	Env  string

	// StoreBackend selects the Reference Store implementation:
	// firestore | mongo | postgres | memory.
	StoreBackend string

	FirebaseCredentialsPath string
	FirestoreProjectID      string
	MongoURI                string
	MongoDatabase           string
	PostgresConnStr         string

	RedisAddr     string
	RedisPassword string

	MeiliHost   string
	MeiliAPIKey string

	LogLevel string
	LogPath  string

	// DisableAuth skips Firebase token verification; development only.
	DisableAuth bool
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		StoreBackend:            getEnv("STORE_BACKEND", "firestore"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		FirestoreProjectID:      getEnv("FIRESTORE_PROJECT_ID", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "circuitlink"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		MeiliHost:               getEnv("MEILI_HOST", ""),
		MeiliAPIKey:             getEnv("MEILI_API_KEY", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogPath:                 getEnv("LOG_PATH", ""),
		DisableAuth:             getEnv("DISABLE_AUTH", "") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
