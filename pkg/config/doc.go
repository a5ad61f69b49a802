// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv for .env files with
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type is
// parsed once and cached for the life of the process, so packages can call
// Load for the same struct without re-reading the environment.
//
// Every package in billingkit exposes its own env-tagged Config; the daemon
// loads them individually:
//
//	config.MustLoadEnv() // optional .env in the working directory
//
//	var billingCfg billing.Config
//	config.MustLoad(&billingCfg)
//
//	var pgCfg pg.Config
//	if err := config.Load(&pgCfg); err != nil {
//		return err
//	}
//
// A failed parse is not cached, so a later Load after fixing the environment
// succeeds. ResetCache clears everything and is meant for tests.
package config
