package api

import (
	"context"
	"fmt"

	"gmdb/internal/config"
	"gmdb/internal/domain"
)

// DatasetClient reads the GitHub-hosted account dataset.
type DatasetClient struct {
	baseURL    string
	serversURL string
	req        *requester
}

type regionResponse struct {
	Accounts map[string]domain.Account `json:"accounts"`
}

func NewDatasetClient(cfg *config.Config, recorder Recorder) *DatasetClient {
	return &DatasetClient{
		baseURL:    cfg.DatasetBaseURL,
		serversURL: cfg.ServersURL,
		req:        newRequester(cfg.FetchTimeout, recorder),
	}
}

func (c *DatasetClient) RegionURL(region domain.Region) string {
	return fmt.Sprintf("%s/accounts/%s/accounts.json", c.baseURL, region.PathSegment())
}

func (c *DatasetClient) IndexURL() string {
	return c.baseURL + "/index.json"
}

func (c *DatasetClient) FetchRegion(ctx context.Context, region domain.Region) (domain.RegionShard, error) {
	if !region.Valid() {
		return domain.RegionShard{}, fmt.Errorf("%w: %q", domain.ErrUnknownRegion, region)
	}
	resp, err := doRequest[regionResponse](ctx, c.req, "region", c.RegionURL(region))
	if err != nil {
		return domain.RegionShard{}, err
	}
	return domain.NewRegionShard(region, resp.Accounts), nil
}

func (c *DatasetClient) FetchIndex(ctx context.Context) (*domain.IndexManifest, error) {
	return doRequest[domain.IndexManifest](ctx, c.req, "index", c.IndexURL())
}

func (c *DatasetClient) FetchServers(ctx context.Context) (*domain.ServerManifest, error) {
	return doRequest[domain.ServerManifest](ctx, c.req, "servers", c.serversURL)
}
