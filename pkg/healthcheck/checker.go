package healthcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/varnish-agent/pkg/config"
)

// ErrTransport 请求未拿到任何 HTTP 响应（DNS、连接拒绝、超时等）
var ErrTransport = errors.New("health check transport failure")

// Target 一次响应检查的目标
type Target struct {
	Scheme    string
	Host      string
	Port      int
	URI       string
	VHost     string
	UserAgent string
	Headers   map[string]string
}

// TargetFromConfig 由 response_check 配置构造检查目标
func TargetFromConfig(cfg *config.ResponseCheckConfig) Target {
	return Target{
		Scheme:    cfg.Scheme(),
		Host:      cfg.Host,
		Port:      cfg.Port,
		URI:       cfg.URI,
		VHost:     cfg.VHost,
		UserAgent: cfg.UAgent,
		Headers:   cfg.Headers,
	}
}

// URL scheme://host:port/uri
func (t Target) URL() string {
	scheme := t.Scheme
	if scheme == "" {
		scheme = "http"
	}
	uri := t.URI
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return scheme + "://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) + uri
}

// Result 检查结果，任何 HTTP 状态码（包括 5xx）都算一次成功的检查
type Result struct {
	StatusCode int
	Latency    time.Duration
}

// LatencySeconds 以秒为单位的耗时
func (r *Result) LatencySeconds() float64 {
	return r.Latency.Seconds()
}

// Checker 基于 resty 的单次 GET 检查：不重试，不跟随重定向，接受自签证书
type Checker struct {
	client *resty.Client
}

func NewChecker(timeout time.Duration) *Checker {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}). //nolint:gosec // 自签证书的站点同样需要检查
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})).
		SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			// net/http 只认 req.Host，Header 里的 Host 会被忽略
			if vhost := req.Header.Get("Host"); vhost != "" {
				req.Host = vhost
			}
			return nil
		}).
		SetLogger(restyLogger{})
	return &Checker{client: client}
}

// Check 发起一次 GET；传输层失败返回 nil 与包装了 ErrTransport 的错误
func (c *Checker) Check(ctx context.Context, target Target) (*Result, error) {
	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)

	for name, value := range target.Headers {
		req.SetHeader(name, value)
	}
	if target.UserAgent != "" {
		req.SetHeader("User-Agent", target.UserAgent)
	}
	if target.VHost != "" {
		req.SetHeader("Host", target.VHost)
	}

	url := target.URL()
	start := time.Now()
	resp, err := req.Get(url)
	elapsed := time.Since(start)

	if resp != nil && resp.RawBody() != nil {
		resp.RawBody().Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, url, err)
	}

	return &Result{
		StatusCode: resp.StatusCode(),
		Latency:    elapsed,
	}, nil
}
