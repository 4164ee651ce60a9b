package monitor_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestQuery(t *testing.T) {
	// 创建测试服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			t.Errorf("期望路径 /api/v1/query, 实际 %s", r.URL.Path)
		}

		query := r.URL.Query().Get("query")
		if query == "" {
			t.Error("query 参数不能为空")
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "vector",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	// 设置测试URL
	SetVictoriaMetricsUrl(server.URL)

	tests := []struct {
		name      string
		query     string
		queryTime time.Time
		wantErr   bool
	}{
		{
			name:      "正常查询",
			query:     "gpu_utilization_percent",
			queryTime: time.Now(),
			wantErr:   false,
		},
		{
			name:      "空查询字符串",
			query:     "",
			queryTime: time.Now(),
			wantErr:   true,
		},
		{
			name:      "零时间使用当前时间",
			query:     "gpu_utilization_percent",
			queryTime: time.Time{},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := Query(ctx, tt.query, tt.queryTime)

			if (err != nil) != tt.wantErr {
				t.Errorf("Query() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && result == nil {
				t.Error("期望返回结果，但得到 nil")
			}
		})
	}
}

func TestQueryRange(t *testing.T) {
	// 创建测试服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("期望路径 /api/v1/query_range, 实际 %s", r.URL.Path)
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "matrix",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetVictoriaMetricsUrl(server.URL)

	now := time.Now()
	tests := []struct {
		name    string
		query   string
		start   time.Time
		end     time.Time
		step    time.Duration
		wantErr bool
	}{
		{
			name:    "正常区间查询",
			query:   "memory_usage_percent",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    15 * time.Second,
			wantErr: false,
		},
		{
			name:    "空查询字符串",
			query:   "",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    15 * time.Second,
			wantErr: true,
		},
		{
			name:    "开始时间晚于结束时间",
			query:   "memory_usage_percent",
			start:   now,
			end:     now.Add(-time.Hour),
			step:    15 * time.Second,
			wantErr: true,
		},
		{
			name:    "零步长使用默认值",
			query:   "memory_usage_percent",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    0,
			wantErr: false,
		},
		{
			name:    "零时间报错",
			query:   "memory_usage_percent",
			start:   time.Time{},
			end:     now,
			step:    15 * time.Second,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := QueryRange(ctx, tt.query, tt.start, tt.end, tt.step)

			if (err != nil) != tt.wantErr {
				t.Errorf("QueryRange() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && result == nil {
				t.Error("期望返回结果，但得到 nil")
			}
		})
	}
}

func TestQueryNodeGPUUtilization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query != `gpu_utilization_percent{node="train-node-1"}` {
			t.Errorf("非预期的查询表达式: %s", query)
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "vector",
				Result: []MetricSeries{
					{
						Metric: map[string]string{"node": "train-node-1"},
						Value:  []interface{}{1718000000.0, "88.5"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetVictoriaMetricsUrl(server.URL)

	result, err := QueryNodeGPUUtilization(context.Background(), "train-node-1")
	if err != nil {
		t.Fatalf("QueryNodeGPUUtilization() error = %v", err)
	}
	if len(result.Result) != 1 {
		t.Fatalf("期望1条序列，实际 %d", len(result.Result))
	}
	if result.Result[0].Metric["node"] != "train-node-1" {
		t.Errorf("非预期的节点标签: %s", result.Result[0].Metric["node"])
	}
}

func TestQueryFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := QueryResultResp{Status: "error"}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetVictoriaMetricsUrl(server.URL)

	_, err := Query(context.Background(), "up", time.Now())
	if err == nil {
		t.Error("期望查询失败错误，但得到 nil")
	}
}
