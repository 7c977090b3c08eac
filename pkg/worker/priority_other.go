//go:build !linux

package worker

func applyNativePriority(Priority) error { return nil }
