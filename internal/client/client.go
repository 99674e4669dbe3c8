// Package client is the HTTP client for the gemtracker API. It follows the
// layout oapi-codegen produces: every operation returns the raw
// *http.Response and a matching NewXxxRequest builder is exported.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestEditorFn func(ctx context.Context, req *http.Request) error

type Client struct {
	Server         string
	Client         HttpRequestDoer
	RequestEditors []RequestEditorFn
}

type ClientOption func(*Client) error

func NewClient(server string, opts ...ClientOption) (*Client, error) {
	client := Client{Server: server}
	for _, o := range opts {
		if err := o(&client); err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(client.Server, "/") {
		client.Server += "/"
	}
	if client.Client == nil {
		client.Client = &http.Client{}
	}
	return &client, nil
}

func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(c *Client) error {
		c.Client = doer
		return nil
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) error {
		c.RequestEditors = append(c.RequestEditors, fn)
		return nil
	}
}

type CreateKitRequest struct {
	Number      int      `json:"number"`
	Name        *string  `json:"name,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	DesignCount *int     `json:"designCount,omitempty"`
	DesignNames []string `json:"designNames,omitempty"`
}

type UpdateKitRequest struct {
	Number                *int     `json:"number,omitempty"`
	Name                  *string  `json:"name,omitempty"`
	Notes                 *string  `json:"notes,omitempty"`
	DesignCount           *int     `json:"designCount,omitempty"`
	DesignNames           []string `json:"designNames,omitempty"`
	KitStartDate          *int64   `json:"kitStartDate,omitempty"`
	ClearKitStartDate     *bool    `json:"clearKitStartDate,omitempty"`
	KitCompletedDate      *int64   `json:"kitCompletedDate,omitempty"`
	ClearKitCompletedDate *bool    `json:"clearKitCompletedDate,omitempty"`
}

type DesignRef struct {
	KitId    string `json:"kitId"`
	DesignId string `json:"designId"`
}

type ConfirmSwitchRequest struct {
	Active DesignRef `json:"active"`
	Target DesignRef `json:"target"`
}

type ListKitSummariesParams struct {
	Bucket *string `form:"bucket,omitempty" json:"bucket,omitempty"`
}

type ListPickHistoryParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

func (c *Client) Health(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodGet, "health", nil, nil)
	})
}

func (c *Client) ClientConfig(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodGet, "client-config", nil, nil)
	})
}

func (c *Client) CreateKit(ctx context.Context, body CreateKitRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewCreateKitRequest(c.Server, body)
	})
}

func NewCreateKitRequest(server string, body CreateKitRequest) (*http.Request, error) {
	return newJSONRequest(server, http.MethodPost, "kits", nil, body)
}

func (c *Client) ListKits(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodGet, "kits", nil, nil)
	})
}

func (c *Client) ListKitSummaries(ctx context.Context, params *ListKitSummariesParams, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewListKitSummariesRequest(c.Server, params)
	})
}

func NewListKitSummariesRequest(server string, params *ListKitSummariesParams) (*http.Request, error) {
	query := url.Values{}
	if params != nil && params.Bucket != nil {
		if err := addQueryParam(query, "bucket", *params.Bucket); err != nil {
			return nil, err
		}
	}
	return newRequest(server, http.MethodGet, "kits/summaries", query, nil)
}

func (c *Client) GetKit(ctx context.Context, kit string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newKitRequest(c.Server, http.MethodGet, kit, "", nil)
	})
}

func (c *Client) UpdateKit(ctx context.Context, kit string, body UpdateKitRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewUpdateKitRequest(c.Server, kit, body)
	})
}

func NewUpdateKitRequest(server, kit string, body UpdateKitRequest) (*http.Request, error) {
	return newKitRequest(server, http.MethodPatch, kit, "", body)
}

func (c *Client) DeleteKit(ctx context.Context, kit string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newKitRequest(c.Server, http.MethodDelete, kit, "", nil)
	})
}

func (c *Client) StartDesign(ctx context.Context, kit, design string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewDesignActionRequest(c.Server, kit, design, "start")
	})
}

func (c *Client) AdvanceDesign(ctx context.Context, kit, design string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewDesignActionRequest(c.Server, kit, design, "advance")
	})
}

func (c *Client) RequestUncomplete(ctx context.Context, kit, design string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewDesignActionRequest(c.Server, kit, design, "uncomplete")
	})
}

func (c *Client) ConfirmUncomplete(ctx context.Context, kit, design string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewDesignActionRequest(c.Server, kit, design, "uncomplete/confirm")
	})
}

// NewDesignActionRequest builds the POST for a design transition such as
// "start" or "uncomplete/confirm".
func NewDesignActionRequest(server, kit, design, action string) (*http.Request, error) {
	return newDesignRequest(server, http.MethodPost, kit, design, action, nil, "")
}

func (c *Client) ConfirmSwitch(ctx context.Context, body ConfirmSwitchRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newJSONRequest(c.Server, http.MethodPost, "switch", nil, body)
	})
}

func (c *Client) SetDesignPhotoWithBody(ctx context.Context, kit, design, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newDesignRequest(c.Server, http.MethodPut, kit, design, "photo", body, contentType)
	})
}

func (c *Client) DeleteDesignPhoto(ctx context.Context, kit, design string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newDesignRequest(c.Server, http.MethodDelete, kit, design, "photo", nil, "")
	})
}

func (c *Client) OverallStats(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodGet, "stats", nil, nil)
	})
}

func (c *Client) PickRandomKit(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodPost, "picks", nil, nil)
	})
}

func (c *Client) ListPickHistory(ctx context.Context, params *ListPickHistoryParams, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return NewListPickHistoryRequest(c.Server, params)
	})
}

func NewListPickHistoryRequest(server string, params *ListPickHistoryParams) (*http.Request, error) {
	query := url.Values{}
	if params != nil && params.Limit != nil {
		if err := addQueryParam(query, "limit", *params.Limit); err != nil {
			return nil, err
		}
	}
	return newRequest(server, http.MethodGet, "picks", query, nil)
}

func (c *Client) DeletePickHistoryEntry(ctx context.Context, pick string, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		pathParam, err := runtime.StyleParamWithLocation("simple", false, "pick", runtime.ParamLocationPath, pick)
		if err != nil {
			return nil, err
		}
		return newRequest(c.Server, http.MethodDelete, "picks/"+pathParam, nil, nil)
	})
}

func (c *Client) RebuildProjection(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodPost, "admin/rebuild", nil, nil)
	})
}

func (c *Client) ReconcileActiveDesigns(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	return c.do(ctx, reqEditors, func() (*http.Request, error) {
		return newRequest(c.Server, http.MethodPost, "admin/reconcile", nil, nil)
	})
}

func (c *Client) do(ctx context.Context, additionalEditors []RequestEditorFn, build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	if err := c.applyEditors(ctx, req, additionalEditors); err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}

func (c *Client) applyEditors(ctx context.Context, req *http.Request, additionalEditors []RequestEditorFn) error {
	for _, r := range c.RequestEditors {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	for _, r := range additionalEditors {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func newKitRequest(server, method, kit, suffix string, body any) (*http.Request, error) {
	pathParam, err := runtime.StyleParamWithLocation("simple", false, "kit", runtime.ParamLocationPath, kit)
	if err != nil {
		return nil, err
	}
	operationPath := "kits/" + pathParam + suffix
	if body == nil {
		return newRequest(server, method, operationPath, nil, nil)
	}
	return newJSONRequest(server, method, operationPath, nil, body)
}

func newDesignRequest(server, method, kit, design, action string, body io.Reader, contentType string) (*http.Request, error) {
	kitParam, err := runtime.StyleParamWithLocation("simple", false, "kit", runtime.ParamLocationPath, kit)
	if err != nil {
		return nil, err
	}
	designParam, err := runtime.StyleParamWithLocation("simple", false, "design", runtime.ParamLocationPath, design)
	if err != nil {
		return nil, err
	}
	operationPath := fmt.Sprintf("kits/%s/designs/%s/%s", kitParam, designParam, action)
	req, err := newRequest(server, method, operationPath, nil, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}
	return req, nil
}

func newJSONRequest(server, method, operationPath string, query url.Values, body any) (*http.Request, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := newRequest(server, method, operationPath, query, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	return req, nil
}

func newRequest(server, method, operationPath string, query url.Values, body io.Reader) (*http.Request, error) {
	serverURL, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	queryURL, err := serverURL.Parse(operationPath)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		queryURL.RawQuery = query.Encode()
	}
	return http.NewRequest(method, queryURL.String(), body)
}

func addQueryParam(query url.Values, name string, value any) error {
	queryFrag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(queryFrag)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		for _, v2 := range v {
			query.Add(k, v2)
		}
	}
	return nil
}
