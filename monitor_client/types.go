package monitor_client

// QueryResultResp VictoriaMetrics查询响应
type QueryResultResp struct {
	Status string      `json:"status"`
	Data   QueryResult `json:"data"`
}

// QueryResult 查询结果数据
type QueryResult struct {
	ResultType string         `json:"resultType"`
	Result     []MetricSeries `json:"result"`
}

// MetricSeries 单条指标序列
type MetricSeries struct {
	Metric map[string]string `json:"metric"`
	Value  []interface{}     `json:"value,omitempty"`  // 即时查询: [timestamp, value]
	Values [][]interface{}   `json:"values,omitempty"` // 区间查询: [[timestamp, value], ...]
}

// LokiQueryResultResp Loki查询响应
type LokiQueryResultResp struct {
	Status string          `json:"status"`
	Data   LokiQueryResult `json:"data"`
}

// LokiQueryResult Loki查询结果数据
type LokiQueryResult struct {
	ResultType string       `json:"resultType"`
	Result     []LokiStream `json:"result"`
}

// LokiStream 单条日志流
type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [[timestamp, line], ...]
}

// LokiLabelValueResp Loki标签值响应
type LokiLabelValueResp struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
}
