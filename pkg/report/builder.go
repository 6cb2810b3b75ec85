package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/varnish-agent/pkg/healthcheck"
	"github.com/varnish-agent/pkg/varnish"
)

const storageTypeFile = "file"

// BanCount ban 列表计数；OK=false 表示本周期获取失败，不上报
type BanCount struct {
	Value string
	OK    bool
}

// DiscoveryEntry LLD 条目，字段名为 Zabbix 宏
type DiscoveryEntry struct {
	Name string `json:"{#STORAGE_NAME}"`
	Type string `json:"{#STORAGE_TYPE}"`
}

type discoveryPayload struct {
	Data []DiscoveryEntry `json:"data"`
}

// Builder 把采集结果转换为 Item
type Builder struct {
	Namespace string
	Hostname  string
	Version   string
	Now       func() time.Time
}

func NewBuilder(namespace, hostname, version string) *Builder {
	return &Builder{
		Namespace: namespace,
		Hostname:  hostname,
		Version:   version,
		Now:       time.Now,
	}
}

// FlattenKey MAIN.n_object -> MAIN,n_object
func FlattenKey(key string) string {
	return strings.ReplaceAll(key, ".", ",")
}

func (b *Builder) key(suffix string) string {
	return b.Namespace + "." + suffix
}

// At 返回使用固定时间的副本，同一周期的 item 共用一个时间戳
func (b *Builder) At(t time.Time) *Builder {
	cp := *b
	cp.Now = func() time.Time { return t }
	return &cp
}

func (b *Builder) timestamp() float64 {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	t := now()
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// BuildItems ping/version 总是输出；其余各项仅在对应数据源成功时输出
func (b *Builder) BuildItems(counters []varnish.StatRecord, ban BanCount, serviceVersion string, health *healthcheck.Result) []Item {
	ts := b.timestamp()
	items := make([]Item, 0, len(counters)+6)
	add := func(key string, value any) {
		items = append(items, Item{Key: key, Value: value, Host: b.Hostname, Timestamp: ts})
	}

	add(b.key("ping"), 1)
	add(b.key("version"), b.Version)

	seen := make(map[string]struct{}, len(counters))
	for _, rec := range counters {
		key := b.key("varnishstat[" + FlattenKey(rec.Key) + "]")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		add(key, rec.Value)
	}

	if ban.OK {
		add(b.key("varnishadm[ban.list]"), ban.Value)
	}
	if serviceVersion != "" {
		add(b.key("varnishd[version]"), serviceVersion)
	}
	if health != nil {
		add(b.key("response_check,time"), health.LatencySeconds())
		add(b.key("response_check,status_code"), health.StatusCode)
	}
	return items
}

// BuildDiscovery 每周期一条 LLD，空列表同样输出 {"data":[]}
func (b *Builder) BuildDiscovery(storages []string) (Item, error) {
	payload := discoveryPayload{Data: make([]DiscoveryEntry, 0, len(storages))}
	for _, name := range storages {
		payload.Data = append(payload.Data, DiscoveryEntry{Name: name, Type: storageTypeFile})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("encode storage discovery: %w", err)
	}
	return Item{
		Key:       b.key("storage.LLD"),
		Value:     string(raw),
		Host:      b.Hostname,
		Timestamp: b.timestamp(),
	}, nil
}
