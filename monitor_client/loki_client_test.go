package monitor_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLokiQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/query" {
			t.Errorf("期望路径 /loki/api/v1/query, 实际 %s", r.URL.Path)
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "streams",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetLokiUrl(server.URL)

	tests := []struct {
		name    string
		query   string
		limit   int
		wantErr bool
	}{
		{
			name:    "正常查询",
			query:   `{job="font-training"}`,
			limit:   50,
			wantErr: false,
		},
		{
			name:    "空查询字符串",
			query:   "",
			limit:   50,
			wantErr: true,
		},
		{
			name:    "零限制使用默认值",
			query:   `{job="font-training"}`,
			limit:   0,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := LokiQuery(ctx, tt.query, tt.limit)

			if (err != nil) != tt.wantErr {
				t.Errorf("LokiQuery() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && result == nil {
				t.Error("期望返回结果，但得到 nil")
			}
		})
	}
}

func TestLokiRangeQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/query_range" {
			t.Errorf("期望路径 /loki/api/v1/query_range, 实际 %s", r.URL.Path)
		}

		if r.URL.Query().Get("start") == "" || r.URL.Query().Get("end") == "" {
			t.Error("start/end 参数不能为空")
		}

		resp := LokiQueryResultResp{
			Status: "success",
			Data: LokiQueryResult{
				ResultType: "streams",
				Result: []LokiStream{
					{
						Stream: map[string]string{"job": "font-training", "package_id": "7"},
						Values: [][]string{
							{"1718000000000000000", "epoch 12: loss=0.031"},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetLokiUrl(server.URL)

	now := time.Now()
	result, err := LokiRangeQuery(context.Background(), `{job="font-training"}`, 100, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("LokiRangeQuery() error = %v", err)
	}
	if len(result.Result) != 1 {
		t.Fatalf("期望1个日志流，实际 %d", len(result.Result))
	}
	if result.Result[0].Stream["package_id"] != "7" {
		t.Errorf("非预期的流标签: %v", result.Result[0].Stream)
	}
	if len(result.Result[0].Values) != 1 {
		t.Errorf("期望1条日志，实际 %d", len(result.Result[0].Values))
	}
}

func TestLokiRangeQueryHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many outstanding requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	SetLokiUrl(server.URL)

	now := time.Now()
	_, err := LokiRangeQuery(context.Background(), `{job="font-training"}`, 100, now.Add(-time.Hour), now)
	if err == nil {
		t.Error("期望HTTP错误，但得到 nil")
	}
}

func TestLokiTrainingLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		expected := `{job="font-training", package_id="7"}`
		if query != expected {
			t.Errorf("期望查询 %s, 实际 %s", expected, query)
		}

		resp := LokiQueryResultResp{
			Status: "success",
			Data: LokiQueryResult{
				ResultType: "streams",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetLokiUrl(server.URL)

	tests := []struct {
		name      string
		packageID int
		limit     int
		preHours  int
		wantErr   bool
	}{
		{
			name:      "正常查询训练日志",
			packageID: 7,
			limit:     100,
			preHours:  2,
			wantErr:   false,
		},
		{
			name:      "非法字体包ID",
			packageID: 0,
			limit:     100,
			preHours:  2,
			wantErr:   true,
		},
		{
			name:      "零小时使用默认值",
			packageID: 7,
			limit:     100,
			preHours:  0,
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := LokiTrainingLogs(ctx, tt.packageID, tt.limit, tt.preHours)

			if (err != nil) != tt.wantErr {
				t.Errorf("LokiTrainingLogs() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && result == nil {
				t.Error("期望返回结果，但得到 nil")
			}
		})
	}
}

func TestLokiLabelValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/label/node/values" {
			t.Errorf("非预期的路径: %s", r.URL.Path)
		}

		resp := LokiLabelValueResp{
			Status: "success",
			Data:   []string{"train-node-1", "train-node-2"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetLokiUrl(server.URL)

	values, err := LokiLabelValues(context.Background(), "node")
	if err != nil {
		t.Fatalf("LokiLabelValues() error = %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("期望2个标签值，实际 %d", len(values))
	}

	if _, err := LokiLabelValues(context.Background(), ""); err == nil {
		t.Error("空标签应返回错误")
	}
}
