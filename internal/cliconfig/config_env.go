package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CONTHREAD_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("workers", os.Getenv("CONTHREAD_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("priority", os.Getenv("CONTHREAD_PRIORITY"), &cfg.Priority); err != nil {
		return err
	}
	if err := s.setIntFromString("max-threads", os.Getenv("CONTHREAD_MAX_THREADS"), &cfg.MaxThreads); err != nil {
		return err
	}

	if err := s.setDuration("interval", os.Getenv("CONTHREAD_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("init-delay", os.Getenv("CONTHREAD_INIT_DELAY"), &cfg.InitDelay); err != nil {
		return err
	}
	if err := s.setDuration("run-for", os.Getenv("CONTHREAD_RUN_FOR"), &cfg.RunFor); err != nil {
		return err
	}

	s.setString("metrics-addr", os.Getenv("CONTHREAD_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("CONTHREAD_LOG_LEVEL"), &cfg.LogLevel)

	s.setBoolFromString("native-priorities", os.Getenv("CONTHREAD_NATIVE_PRIORITIES"), &cfg.NativePriorities)
	s.setBoolFromString("watch-config", os.Getenv("CONTHREAD_WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
