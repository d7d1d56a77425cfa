package redis

import (
	"testing"

	"github.com/flowline/flowline/pkg/config"
)

func TestNewClientRejectsEmptyAddressList(t *testing.T) {
	for name, cfg := range map[string]*config.RedisConfig{
		"standalone": {},
		"cluster":    {ClusterMode: true},
	} {
		if _, err := NewClient(cfg); err == nil {
			t.Fatalf("%s: expected error for empty address list", name)
		}
	}
}
