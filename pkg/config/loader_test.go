package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/config"
)

type defaultsConfig struct {
	Name    string `env:"CFG_TEST_DEFAULT_NAME" envDefault:"billingd"`
	Port    int    `env:"CFG_TEST_DEFAULT_PORT" envDefault:"8080"`
	Enabled bool   `env:"CFG_TEST_DEFAULT_ENABLED" envDefault:"true"`
}

type envConfig struct {
	Name string `env:"CFG_TEST_ENV_NAME"`
	Port int    `env:"CFG_TEST_ENV_PORT"`
}

type cachedConfig struct {
	Value string `env:"CFG_TEST_CACHED"`
}

type requiredConfig struct {
	Value string `env:"CFG_TEST_REQUIRED,required"`
}

type fileConfig struct {
	Name   string   `env:"CFG_TEST_FILE_NAME"`
	Port   int      `env:"CFG_TEST_FILE_PORT"`
	Tags   []string `env:"CFG_TEST_FILE_TAGS" envSeparator:","`
	Second string   `env:"CFG_TEST_SECOND"`
}

func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	config.ResetCache()

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "billingd", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFG_TEST_ENV_NAME", "worker")
	t.Setenv("CFG_TEST_ENV_PORT", "9090")

	var cfg envConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "worker", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_CachedPerType(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFG_TEST_CACHED", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CFG_TEST_CACHED", "second")
	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)

	config.ResetCache()
	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value)
}

func TestLoad_MissingRequiredIsNotCached(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("CFG_TEST_REQUIRED", "present")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "present", cfg.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *envConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	config.ResetCache()
	_ = os.Unsetenv("CFG_TEST_REQUIRED")

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv_Files(t *testing.T) {
	config.ResetCache()
	unsetAfter(t, "CFG_TEST_FILE_NAME", "CFG_TEST_FILE_PORT", "CFG_TEST_FILE_TAGS", "CFG_TEST_SECOND")

	require.NoError(t, config.LoadEnv("testdata/.env.test", "testdata/.env.second"))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	// the first file wins for keys defined twice
	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, "second", cfg.Second)
}

func TestLoadEnv_EnvironmentWins(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFG_TEST_FILE_NAME", "from-env")
	unsetAfter(t, "CFG_TEST_FILE_PORT", "CFG_TEST_FILE_TAGS")

	require.NoError(t, config.LoadEnv("testdata/.env.test"))
	assert.Equal(t, "from-env", os.Getenv("CFG_TEST_FILE_NAME"))
	assert.Equal(t, "8081", os.Getenv("CFG_TEST_FILE_PORT"))
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := config.LoadEnv("testdata/.env.nope")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)

	assert.Panics(t, func() { config.MustLoadEnv("testdata/.env.nope") })
}
