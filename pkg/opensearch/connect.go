package opensearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/opensearch-project/opensearch-go/v2"
)

// retryStatuses are the gateway errors a cluster behind a load balancer
// returns while a node restarts.
var retryStatuses = []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}

// New builds a client from cfg and pings the cluster once, bounded by
// cfg.PingTimeout, so a bad address fails at startup rather than on the
// first journal write.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.Join(ErrConnectionFailed, ErrNoAddresses)
	}

	osCfg := opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		DisableRetry:  cfg.DisableRetry,
		RetryOnStatus: retryStatuses,
	}
	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, errors.Join(ErrConnectionFailed, fmt.Errorf("read ca cert: %w", err))
		}
		osCfg.CACert = pem
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := Healthcheck(client)(ctx); err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}
