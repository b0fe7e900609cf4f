package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"blog/logger"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type benchConfig struct {
	BaseURL        string
	Token          string
	Workers        int
	Duration       time.Duration
	Requests       int64
	RequestsPerSec int
	MaxPage        int
	WriteRatio     float64
}

type benchStats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalDuration   int64
}

func (s *benchStats) record(duration time.Duration, err error) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.TotalDuration, duration.Milliseconds())
	if err != nil {
		atomic.AddInt64(&s.FailedRequests, 1)
	} else {
		atomic.AddInt64(&s.SuccessRequests, 1)
	}
}

func (s *benchStats) fields() []zap.Field {
	total := atomic.LoadInt64(&s.TotalRequests)
	success := atomic.LoadInt64(&s.SuccessRequests)
	var avgLatency int64
	var successRate float64
	if total > 0 {
		avgLatency = atomic.LoadInt64(&s.TotalDuration) / total
		successRate = float64(success) / float64(total) * 100
	}
	return []zap.Field{
		zap.Int64("total", total),
		zap.Int64("success", success),
		zap.Int64("failed", atomic.LoadInt64(&s.FailedRequests)),
		zap.Float64("success_rate", successRate),
		zap.Int64("avg_latency_ms", avgLatency),
	}
}

var benchConf benchConfig

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load the index feed (and optionally post creation) of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats := runBench(ctx, benchConf)
		logger.L.Info("Bench finished", stats.fields()...)
		return nil
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchConf.BaseURL, "url", "http://localhost:8080", "blog service URL")
	f.StringVar(&benchConf.Token, "token", "", "session token; enables post creation")
	f.IntVar(&benchConf.Workers, "workers", 10, "number of concurrent workers")
	f.DurationVar(&benchConf.Duration, "duration", time.Minute, "test duration (0 for infinite)")
	f.Int64Var(&benchConf.Requests, "requests", 0, "total requests to send (0 for infinite)")
	f.IntVar(&benchConf.RequestsPerSec, "rps", 100, "requests per second target")
	f.IntVar(&benchConf.MaxPage, "pages", 5, "index pages to spread reads over")
	f.Float64Var(&benchConf.WriteRatio, "write-ratio", 0.1, "share of requests creating posts when --token is set")
	RootCmd.AddCommand(benchCmd)
}

// runBench гоняет воркеров до отмены ctx, истечения Duration или Requests запросов
func runBench(ctx context.Context, conf benchConfig) *benchStats {
	if conf.Workers < 1 {
		conf.Workers = 1
	}
	if conf.MaxPage < 1 {
		conf.MaxPage = 1
	}
	if conf.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Duration)
		defer cancel()
	}
	requestsPerWorker := conf.RequestsPerSec / conf.Workers
	if requestsPerWorker < 1 {
		requestsPerWorker = 1
	}

	stats := &benchStats{}
	var wg sync.WaitGroup
	for i := 0; i < conf.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			benchWorker(ctx, id, conf, requestsPerWorker, stats)
		}(i)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.L.Info("Bench stats", stats.fields()...)
			}
		}
	}()

	wg.Wait()
	return stats
}

func benchWorker(ctx context.Context, id int, conf benchConfig, requestsPerSec int, stats *benchStats) {
	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(time.Second / time.Duration(requestsPerSec))
	defer ticker.Stop()

	created := 0
	for {
		select {
		case <-ctx.Done():
			logger.L.Debug("Bench worker stopping", zap.Int("worker", id), zap.Int("created", created))
			return
		case <-ticker.C:
			if conf.Requests > 0 && atomic.LoadInt64(&stats.TotalRequests) >= conf.Requests {
				return
			}

			start := time.Now()
			var err error
			if conf.Token != "" && rand.Float64() < conf.WriteRatio {
				err = benchCreatePost(ctx, client, conf)
				if err == nil {
					created++
				}
			} else {
				err = benchIndex(ctx, client, conf.BaseURL, 1+rand.Intn(conf.MaxPage))
			}
			stats.record(time.Since(start), err)
		}
	}
}

func benchIndex(ctx context.Context, client *http.Client, baseURL string, page int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/posts?page=%d", baseURL, page), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return benchDo(client, req, http.StatusOK)
}

func benchCreatePost(ctx context.Context, client *http.Client, conf benchConfig) error {
	body, err := json.Marshal(map[string]string{"text": gofakeit.Sentence(10)})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.BaseURL+"/api/v1/new", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conf.Token)
	return benchDo(client, req, http.StatusCreated)
}

func benchDo(client *http.Client, req *http.Request, want int) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
