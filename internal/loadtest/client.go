package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"

	"github.com/okian/todoapi/internal/domain/model"
)

// client is a thin JSON client for the todo routes.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *client) itemURL(key int64) string {
	return fmt.Sprintf("%s/api/todo/%d", c.baseURL, key)
}

// do sends a request with an optional JSON body and returns status and body.
func (c *client) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Annotate(err, "marshalling request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, errors.Annotate(err, "creating request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Annotatef(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Annotate(err, "reading response body")
	}
	return resp.StatusCode, data, nil
}

func (c *client) health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.Errorf("health check returned status %d", status)
	}
	return nil
}

func (c *client) create(ctx context.Context, item model.TodoItem) outcome {
	status, _, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/todo", item)
	switch {
	case err != nil:
		return outcomeFailed
	case status == http.StatusCreated:
		return outcomeOK
	case status == http.StatusConflict:
		return outcomeConflict
	default:
		return outcomeFailed
	}
}

func (c *client) update(ctx context.Context, item model.TodoItem) outcome {
	status, _, err := c.do(ctx, http.MethodPut, c.itemURL(item.Key), item)
	if err != nil || status != http.StatusNoContent {
		return outcomeFailed
	}
	return outcomeOK
}

func (c *client) remove(ctx context.Context, item model.TodoItem) outcome {
	status, _, err := c.do(ctx, http.MethodDelete, c.itemURL(item.Key), nil)
	if err != nil || status != http.StatusNoContent {
		return outcomeFailed
	}
	return outcomeOK
}

func (c *client) list(ctx context.Context) ([]model.TodoItem, error) {
	status, data, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/todo", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.Errorf("list returned status %d", status)
	}
	var items []model.TodoItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Annotate(err, "decoding item list")
	}
	return items, nil
}
