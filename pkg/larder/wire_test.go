package larder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LavishGent/larder/internal/config"
)

func TestDataDogConfig(t *testing.T) {
	t.Run("adds cache name tag", func(t *testing.T) {
		cfg := config.ForTesting()
		cfg.Disk.Name = "thumbs"
		cfg.Metrics.DataDog.Tags = []string{"env:test"}

		got := dataDogConfig(cfg)
		if diff := cmp.Diff([]string{"env:test", "cache:thumbs"}, got.Tags); diff != "" {
			t.Errorf("Tags mismatch (-want +got):\n%s", diff)
		}
		if len(cfg.Metrics.DataDog.Tags) != 1 {
			t.Errorf("config Tags = %v, want unchanged", cfg.Metrics.DataDog.Tags)
		}
	})

	t.Run("unnamed cache keeps configured tags", func(t *testing.T) {
		cfg := config.ForTesting()
		cfg.Metrics.DataDog.Tags = []string{"env:test"}

		got := dataDogConfig(cfg)
		if diff := cmp.Diff([]string{"env:test"}, got.Tags); diff != "" {
			t.Errorf("Tags mismatch (-want +got):\n%s", diff)
		}
	})
}
