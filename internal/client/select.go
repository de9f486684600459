package client

import (
	"fmt"

	"printshop/storefront/internal/config"
	"printshop/storefront/internal/domain"
)

// ForContext selects the client capability for an explicit execution context.
// The server variant needs a write token; the browser variant never carries one.
func ForContext(execCtx domain.ExecutionContext, cfg config.ContentConfig) (ContentClient, error) {
	switch execCtx {
	case domain.ExecutionBrowser:
		return NewContentClient(cfg, execCtx), nil
	case domain.ExecutionServer:
		if cfg.Token == "" {
			return nil, fmt.Errorf("%s context requires content.token", execCtx)
		}
		return NewContentClient(cfg, execCtx), nil
	default:
		return nil, fmt.Errorf("unsupported execution context %d", int(execCtx))
	}
}
