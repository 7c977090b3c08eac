package cliconfig

import (
	"os"

	"github.com/bft-labs/conthread/pkg/log"
)

// NewLogger returns a console logger on stderr at the named level.
func NewLogger(level string) (*log.ZerologAdapter, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewZerologAdapter(os.Stderr, lvl), nil
}
