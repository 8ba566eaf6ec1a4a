package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, floats for the settlement constants.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Settlement constants.  ConversionFactor is the number of USDC one
	// reward coin represents; RewardDecimals the coin's display precision;
	// CommissionRate the platform cut recorded on the merchant payment
	// figures at check-out.  SingleGlobalSession selects whether a user
	// may hold at most one open session anywhere (true) or one per café
	// (false).
	ConversionFactor    float64 // REWARD_CONVERSION_FACTOR
	RewardDecimals      int     // REWARD_DECIMALS
	CommissionRate      float64 // COMMISSION_RATE
	SingleGlobalSession bool    // SINGLE_GLOBAL_SESSION

	// TreasuryURL is the base URL of the external mint service.  Empty
	// disables the on-chain mirror; the internal ledger remains
	// authoritative either way.
	TreasuryURL string // TREASURY_URL
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The settlement
// constants default to the programme's launch values (2 USDC per coin,
// 9 decimals, 10% commission, one global session per user) so a plain
// development environment needs no extra variables.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		ConversionFactor:    envFloat("REWARD_CONVERSION_FACTOR", 2), // USDC per coin
		RewardDecimals:      envIntDefault("REWARD_DECIMALS", 9),     // coin display precision
		CommissionRate:      envFloat("COMMISSION_RATE", 0.1),        // platform cut
		SingleGlobalSession: envBoolDefault("SINGLE_GLOBAL_SESSION", true),
		TreasuryURL:         os.Getenv("TREASURY_URL"), // empty disables the mirror
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envFloat reads an optional float variable, falling back to def when the
// variable is unset.  A malformed value is a fatal configuration error.
func envFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("invalid float for %s: %q", key, s)
	}
	return f
}

// envIntDefault reads an optional integer variable with a default.
func envIntDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envBoolDefault reads an optional boolean variable with a default.
func envBoolDefault(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	default:
		return false
	}
}
