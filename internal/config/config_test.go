package config

import (
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalRequiredConfig provides the database config needed for all tests
func minimalRequiredConfig() map[string]string {
	return map[string]string{
		"DOCHUB_DB_HOST":     "localhost",
		"DOCHUB_DB_PORT":     "5432",
		"DOCHUB_DB_NAME":     "dochub_test",
		"DOCHUB_DB_USER":     "test_user",
		"DOCHUB_DB_PASSWORD": "test_pass",
	}
}

// mergeEnvVars merges additional env vars with minimal required config
func mergeEnvVars(additional map[string]string) map[string]string {
	result := minimalRequiredConfig()
	maps.Copy(result, additional)
	return result
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should use defaults when no env vars are set",
			envVars: minimalRequiredConfig(),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "dochub", cfg.App.Name)
				assert.Equal(t, "dev", cfg.App.Version)
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "info", cfg.App.LogLevel)
				assert.Equal(t, "text", cfg.App.LogFormat)
				assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, 500, cfg.Cache.Capacity)
				assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
				assert.Equal(t, 10*time.Second, cfg.Enquiry.Deadline)
				assert.Equal(t, 20, cfg.Enquiry.DefaultPageSize)
				assert.Equal(t, 100, cfg.Enquiry.MaxPageSize)
				assert.Equal(t, "RETAIL", cfg.Accounts.DefaultLineOfBusiness)
			},
			wantErr: false,
		},
		{
			name: "Should load all custom environment variables correctly",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_NAME":             "test-app",
				"DOCHUB_APP_VERSION":          "1.0.0",
				"DOCHUB_APP_ENV":              "staging",
				"DOCHUB_APP_LOG_LEVEL":        "debug",
				"DOCHUB_APP_LOG_FORMAT":       "json",
				"DOCHUB_APP_SHUTDOWN_TIMEOUT": "60s",
				"DOCHUB_SERVER_PORT":          "9090",
				"DOCHUB_TEMPLATE_CACHE_CAPACITY": "1000",
				"DOCHUB_TEMPLATE_CACHE_TTL":      "5m",
				"DOCHUB_ENQUIRY_DEADLINE":        "30s",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-app", cfg.App.Name)
				assert.Equal(t, "1.0.0", cfg.App.Version)
				assert.Equal(t, "staging", cfg.App.Environment)
				assert.Equal(t, "debug", cfg.App.LogLevel)
				assert.Equal(t, "json", cfg.App.LogFormat)
				assert.Equal(t, 60*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "9090", cfg.Server.Port)
				assert.Equal(t, 1000, cfg.Cache.Capacity)
				assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
				assert.Equal(t, 30*time.Second, cfg.Enquiry.Deadline)
			},
			wantErr: false,
		},
		{
			name: "Should fail validation on invalid environment value",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_ENV": "invalid",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log level",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_LOG_LEVEL": "trace",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log format",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_LOG_FORMAT": "xml",
			}),
			wantErr: true,
		},
		{
			name: "Should allow missing passwords in non-production environments",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_ENV":     "development",
				"DOCHUB_DB_PASSWORD": "",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "", cfg.Database.Password)
			},
			wantErr: false,
		},
		{
			name: "Should require strong database password in production",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_ENV":     "production",
				"DOCHUB_DB_PASSWORD": "short",
				"DOCHUB_DB_SSL_MODE": "require",
			}),
			wantErr: true,
		},
		{
			name: "Should require secure SSL mode in production",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_ENV":     "production",
				"DOCHUB_DB_PASSWORD": "SuperSecure123!",
				"DOCHUB_DB_SSL_MODE": "disable",
			}),
			wantErr: true,
		},
		{
			name: "Should pass validation with a full production configuration",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_APP_ENV":        "production",
				"DOCHUB_DB_PASSWORD":    "SuperSecure123!",
				"DOCHUB_DB_SSL_MODE":    "require",
				"DOCHUB_REDIS_HOST":     "prod-redis.example.com",
				"DOCHUB_REDIS_PASSWORD": "RedisSecure123!",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "production", cfg.App.Environment)
				assert.True(t, cfg.Redis.IsConfigured())
			},
			wantErr: false,
		},
		{
			name: "Should fail validation on invalid accounts base URL",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_ACCOUNTS_BASE_URL": "not-a-url",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation when max page size is below default page size",
			envVars: mergeEnvVars(map[string]string{
				"DOCHUB_ENQUIRY_DEFAULT_PAGE_SIZE": "50",
				"DOCHUB_ENQUIRY_MAX_PAGE_SIZE":     "10",
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// t.Setenv automatically prevents parallel execution and cleans up after the test
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}

func TestRedisConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         RedisConfig
		environment string
		wantErr     bool
	}{
		{
			name:        "Should allow unconfigured Redis",
			cfg:         RedisConfig{},
			environment: EnvironmentProduction,
			wantErr:     false,
		},
		{
			name:        "Should pass with host and port in development",
			cfg:         RedisConfig{Host: "localhost", Port: "6379"},
			environment: "development",
			wantErr:     false,
		},
		{
			name:        "Should fail on invalid port",
			cfg:         RedisConfig{Host: "localhost", Port: "not-a-port"},
			environment: "development",
			wantErr:     true,
		},
		{
			name:        "Should require password in production when configured",
			cfg:         RedisConfig{Host: "redis.example.com", Port: "6379"},
			environment: EnvironmentProduction,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.environment)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRedisConfigAddress(t *testing.T) {
	cfg := RedisConfig{Host: "localhost", Port: "6380"}
	assert.Equal(t, "localhost:6380", cfg.Address())
}
