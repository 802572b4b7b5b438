package opqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config groups all tunables. Values are taken from environment variables
// with the prefix "SAGE_OPQ". Example: SAGE_OPQ_OP_TIMEOUT=90s .
type Config struct {
	// OpTimeout bounds a single operation end to end, covering every
	// backend call the operation issues. Zero disables the bound.
	OpTimeout time.Duration `envconfig:"OP_TIMEOUT" default:"0s"`
}

// LoadConfig populates Config from environment variables (prefix SAGE_OPQ).
func LoadConfig() (Config, error) {
	var c Config
	return c, envconfig.Process("SAGE_OPQ", &c)
}
