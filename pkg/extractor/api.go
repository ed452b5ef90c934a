// pkg/extractor/api.go
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

const storeNumberPlaceholder = "{store_number}"

// StoreAPI reads store details from the paginated stores endpoint
type StoreAPI struct {
	client     *http.Client
	numberURL  string
	detailsURL string
	apiKey     string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewStoreAPI creates a client. A non-positive request rate disables pacing.
func NewStoreAPI(cfg config.APIConfig, logger *zap.Logger) *StoreAPI {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StoreAPI{
		client:     &http.Client{Timeout: timeout},
		numberURL:  cfg.NumberStoresURL,
		detailsURL: cfg.StoreDetailsURL,
		apiKey:     cfg.Key,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.Named("store-api"),
	}
}

// NumberOfStores returns the store count advertised by the API
func (a *StoreAPI) NumberOfStores(ctx context.Context) (int, error) {
	var payload struct {
		NumberStores *int `json:"number_stores"`
	}
	if err := a.getJSON(ctx, a.numberURL, &payload); err != nil {
		return 0, err
	}
	if payload.NumberStores == nil {
		return 0, newExtractionError(a.numberURL, KindDecode, errors.New("response has no number_stores field"))
	}
	if *payload.NumberStores < 0 {
		return 0, newExtractionError(a.numberURL, KindDecode, fmt.Errorf("negative number_stores %d", *payload.NumberStores))
	}
	return *payload.NumberStores, nil
}

// RetrieveStore returns the details of one store
func (a *StoreAPI) RetrieveStore(ctx context.Context, storeNumber int) (map[string]interface{}, error) {
	url := strings.ReplaceAll(a.detailsURL, storeNumberPlaceholder, strconv.Itoa(storeNumber))
	var record map[string]interface{}
	if err := a.getJSON(ctx, url, &record); err != nil {
		return nil, err
	}
	for k, v := range record {
		record[k] = normalizeJSON(v)
	}
	return record, nil
}

// RetrieveStores fetches every store numbered 0..n-1. The columns are the
// union of the keys of all store records.
func (a *StoreAPI) RetrieveStores(ctx context.Context) (model.Table, error) {
	n, err := a.NumberOfStores(ctx)
	if err != nil {
		return model.Table{}, err
	}
	a.logger.Info("Retrieving stores", zap.Int("number_stores", n))

	records := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return model.Table{}, newExtractionError(a.detailsURL, KindTransient, err)
		}
		record, err := a.RetrieveStore(ctx, i)
		if err != nil {
			return model.Table{}, fmt.Errorf("store %d: %w", i, err)
		}
		records = append(records, record)
	}

	return model.NewTableFromRecords(records), nil
}

func (a *StoreAPI) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newExtractionError(url, KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("x-api-key", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		kind, ok := classifyTransportError(err)
		if !ok {
			kind = KindUnknown
		}
		return newExtractionError(url, kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newExtractionError(url, kindForStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return newExtractionError(url, KindDecode, err)
	}
	return nil
}
