package chain

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// FileProvider serves chain snapshots stored as <Dir>/<SYMBOL>.json in the
// provider's wire format. It is used for offline scans and fixtures.
type FileProvider struct {
	Dir string
}

// NewFileProvider creates a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// FetchChain implements Provider.
func (p *FileProvider) FetchChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.Dir, strings.ToUpper(symbol)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewChainFetchError(symbol, "NOT_FOUND", apperrors.ErrNotFound)
		}
		return nil, apperrors.NewChainFetchError(symbol, "", err)
	}
	return DecodeChain(symbol, data)
}

// DecodeChain parses a chain document and rejects provider-side failures.
func DecodeChain(symbol string, data []byte) (*models.OptionChain, error) {
	var chain models.OptionChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, apperrors.NewChainFetchError(symbol, "DECODE", err)
	}
	if chain.Status != "" && !strings.EqualFold(chain.Status, "SUCCESS") {
		return nil, apperrors.NewChainFetchError(symbol, chain.Status, apperrors.ErrNotFound)
	}
	if chain.Symbol == "" {
		chain.Symbol = strings.ToUpper(symbol)
	}
	return &chain, nil
}
