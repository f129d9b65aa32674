package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

const commentPrefix = "[curator]"

// HTTPClient implements Client against the catalog's HTTP API.
// Every request waits on a shared rate limiter.
type HTTPClient struct {
	base         *url.URL
	serverDomain string
	userAgent    string
	user         string
	password     string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

type productResponse struct {
	Status  int     `json:"status"`
	Product Product `json:"product"`
}

// NewHTTPClient creates a catalog client from cfg. A nil httpClient uses a
// client with the configured timeout.
func NewHTTPClient(cfg *Config, httpClient *http.Client, logger *slog.Logger) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TimeoutDuration()}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &HTTPClient{
		base:         base,
		serverDomain: cfg.ServerDomain,
		userAgent:    cfg.UserAgent,
		user:         cfg.User,
		password:     cfg.Password,
		http:         httpClient,
		limiter:      rate.NewLimiter(limit, max(cfg.Burst, 1)),
		logger:       logger.With("system", "catalog"),
	}, nil
}

func (c *HTTPClient) Product(ctx context.Context, barcode string, fields ...string) (Product, error) {
	u := c.base.ResolveReference(&url.URL{
		Path: fmt.Sprintf("api/v0/product/%s.json", url.PathEscape(barcode)),
	})
	if len(fields) > 0 {
		u.RawQuery = url.Values{"fields": {strings.Join(fields, ",")}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "getProduct")
	if err != nil {
		return nil, err
	}

	var out productResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse product %s: %w", barcode, err)
	}
	if out.Status != 1 || out.Product == nil {
		return nil, nil
	}
	return out.Product, nil
}

func (c *HTTPClient) UpdateEmbCodes(ctx context.Context, edit Edit, codes []string) error {
	return c.write(ctx, edit, "Updating packager codes", url.Values{
		"emb_codes": {strings.Join(codes, ",")},
	})
}

func (c *HTTPClient) AddLabel(ctx context.Context, edit Edit, tag string) error {
	return c.write(ctx, edit, "Adding label tag", url.Values{"add_labels": {tag}})
}

func (c *HTTPClient) AddCategory(ctx context.Context, edit Edit, tag string) error {
	return c.write(ctx, edit, "Adding category", url.Values{"add_categories": {tag}})
}

func (c *HTTPClient) UpdateQuantity(ctx context.Context, edit Edit, quantity string) error {
	return c.write(ctx, edit, "Updating quantity", url.Values{"quantity": {quantity}})
}

func (c *HTTPClient) UpdateExpirationDate(ctx context.Context, edit Edit, date string) error {
	return c.write(ctx, edit, "Adding expiration date", url.Values{"expiration_date": {date}})
}

func (c *HTTPClient) AddBrand(ctx context.Context, edit Edit, brand string) error {
	return c.write(ctx, edit, "Adding brand", url.Values{"add_brands": {brand}})
}

func (c *HTTPClient) AddStore(ctx context.Context, edit Edit, store string) error {
	return c.write(ctx, edit, "Adding store", url.Values{"add_stores": {store}})
}

func (c *HTTPClient) AddPackaging(ctx context.Context, edit Edit, packaging string) error {
	return c.write(ctx, edit, "Adding packaging", url.Values{"add_packaging": {packaging}})
}

func (c *HTTPClient) SaveIngredients(ctx context.Context, edit Edit, lang, text string) error {
	return c.write(ctx, edit, "Fixing spelling errors", url.Values{
		"ingredients_text_" + lang: {text},
	})
}

func (c *HTTPClient) SelectRotateImage(ctx context.Context, edit Edit, imageID, imageKey string, rotate *int) error {
	form := url.Values{
		"code":  {edit.Barcode},
		"id":    {imageKey},
		"imgid": {imageID},
	}
	if rotate != nil {
		form.Set("angle", strconv.Itoa(*rotate))
	}

	return c.post(ctx, edit, "selectImage", "cgi/product_image_crop.pl", form)
}

func (c *HTTPClient) write(ctx context.Context, edit Edit, description string, fields url.Values) error {
	form := url.Values{
		"code":    {edit.Barcode},
		"comment": {fmt.Sprintf("%s %s, ID: %s", commentPrefix, description, edit.InsightID)},
	}
	for k, v := range fields {
		form[k] = v
	}

	return c.post(ctx, edit, "updateProduct", "cgi/product_jqm2.pl", form)
}

func (c *HTTPClient) post(ctx context.Context, edit Edit, op, endpoint string, form url.Values) error {
	base, err := c.baseFor(edit.ServerDomain)
	if err != nil {
		return err
	}

	cookie := c.authenticate(form, edit.Auth)

	u := base.ResolveReference(&url.URL{Path: endpoint})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: cookie})
	}

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	if err := checkWrite(op, edit.Barcode, body); err != nil {
		return err
	}

	c.logger.Info(
		"catalog edit applied",
		"op", op,
		"barcode", edit.Barcode,
		"insight_id", edit.InsightID,
		"server_domain", edit.ServerDomain,
	)
	return nil
}

// authenticate adds credentials to form, or returns a session cookie value
// to send instead.
func (c *HTTPClient) authenticate(form url.Values, auth *Auth) string {
	if auth != nil {
		if auth.SessionCookie != "" {
			return auth.SessionCookie
		}
		if auth.User != "" && auth.Password != "" {
			form.Set("user_id", auth.User)
			form.Set("password", auth.Password)
			return ""
		}
	}
	if c.user != "" {
		form.Set("user_id", c.user)
		form.Set("password", c.password)
	}
	return ""
}

// baseFor maps an insight's server domain ("api.example.org") to the web
// host edits are posted to ("https://world.example.org/").
func (c *HTTPClient) baseFor(serverDomain string) (*url.URL, error) {
	if serverDomain == "" || serverDomain == c.serverDomain {
		return c.base, nil
	}

	host := "world." + strings.TrimPrefix(serverDomain, "api.")
	u, err := url.Parse("https://" + host + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid server domain %q: %w", serverDomain, err)
	}
	return u, nil
}

func (c *HTTPClient) do(req *http.Request, op string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(op, resp, body)
	}
	return body, nil
}
