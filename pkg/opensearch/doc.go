// Package opensearch connects to an OpenSearch cluster used as the billing
// audit journal store.
//
// Config is read from OPENSEARCH_* environment variables. New builds an
// opensearch-go client and runs Healthcheck before returning it, so a
// misconfigured cluster fails at startup.
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	journal := searchjournal.New(client, cfg.JournalIndex)
package opensearch
