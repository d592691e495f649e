package config_test

import (
	"fmt"

	"github.com/wonny/investor-coach/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Cache dir: %s (ttl %s)\n", cfg.Cache.Dir, cfg.Cache.TTL)
	fmt.Printf("Benchmark: %s, risk-free %.3f\n", cfg.Analytics.Benchmark, cfg.Analytics.RiskFreeRate)
}
