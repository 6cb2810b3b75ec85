package report

import (
	"fmt"
	"strconv"
)

// Item 一条上报数据，由采集周期内构造，入队后不再修改
type Item struct {
	Key       string
	Value     any
	Host      string
	Timestamp float64
}

// Data 队列消费端看到的序列化形式
type Data struct {
	Host  string `json:"host"`
	Clock int64  `json:"clock"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Data 转成 {host, clock, key, value}，clock 取整秒
func (i Item) Data() Data {
	return Data{
		Host:  i.Host,
		Clock: int64(i.Timestamp),
		Key:   i.Key,
		Value: FormatValue(i.Value),
	}
}

// FormatValue 数值统一用最短十进制表示，字符串原样输出
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
