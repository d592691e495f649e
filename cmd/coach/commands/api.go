package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/investor-coach/internal/api"
	"github.com/wonny/investor-coach/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 비교/순위 엔드포인트 제공 (Redis 활성화 시 응답 캐시)
- 가격 캐시 관리 엔드포인트 제공

Endpoints:
  GET    /health             - Health check
  GET    /metrics            - Prometheus metrics
  GET    /api/compare        - 비교/순위 (tickers, benchmark, profile, ...)
  GET    /api/cache          - 캐시 항목 조회
  DELETE /api/cache          - 캐시 전체 삭제
  DELETE /api/cache/{key}    - 캐시 항목 삭제

Example:
  go run ./cmd/coach api
  go run ./cmd/coach api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Investor Coach API Server ===")

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":  a.cfg.Port,
		"env":   a.cfg.Env,
		"redis": a.redis.Enabled(),
	}).Info("Initializing API server")

	// Handlers / router
	compareHandler := handlers.NewCompareHandler(a.service, a.cache, a.log)
	cacheHandler := handlers.NewCacheHandler(a.store, a.log)
	rec := a.metrics
	if !a.cfg.MetricsEnabled {
		rec = nil
	}
	router := api.NewRouter(compareHandler, cacheHandler, rec, a.log)

	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	a.log.Info("API server started successfully")
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "\nAvailable endpoints:")
	fmt.Fprintln(out, "  GET    /health")
	if rec != nil {
		fmt.Fprintln(out, "  GET    /metrics")
	}
	fmt.Fprintln(out, "  GET    /api/compare")
	fmt.Fprintln(out, "  GET    /api/cache")
	fmt.Fprintln(out, "  DELETE /api/cache[/{key}]")
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
