// Package larder provides an embeddable object cache with a memory tier,
// a disk tier and a hybrid that puts the first in front of the second.
//
// # Features
//
//   - Memory tier: exact LRU ordering with count and caller-supplied cost limits
//   - Disk tier: SQLite catalog with small payloads stored inline and large
//     payloads in blob files, expiry by age, trimming by count and size
//   - Hybrid: writes go to both tiers, reads promote disk hits into memory
//   - Graceful degradation: a disk tier that cannot open leaves a memory-only cache
//   - Observability: slog logging, a metrics tracker, Prometheus and DataDog
//
// # Quick Start
//
//	c, err := larder.New[Thumbnail]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
// # Cache Operations
//
// Failures never surface as errors from cache operations. A failed Set
// reports false and a failed Get reports absence:
//
//	thumb := Thumbnail{ID: "123", Width: 64}
//	if !c.Set("thumb:123", thumb, 64*64) {
//	    // neither tier accepted the value
//	}
//
//	cached, ok := c.Get("thumb:123")
//
// Every operation has an async variant that runs on a bounded worker pool:
//
//	c.GetAsync("thumb:123", func(key string, v Thumbnail, ok bool) {
//	    // ...
//	})
//
// # Tiers
//
// Each tier can be used alone:
//
//	mem, _ := larder.NewMemory[[]byte](cfg)
//	disk, _ := larder.NewDisk[[]byte](cfg)
//
// The cost passed to Set only matters to the memory tier. The disk tier
// limits its total encoded size instead.
//
// # Iteration
//
// All returns a range-over-func sequence over a key snapshot:
//
//	for key, v := range c.All() {
//	    fmt.Println(key, v.Width)
//	}
//
// # Configuration
//
// Load configuration from a JSON file (comments and trailing commas allowed):
//
//	c, err := larder.NewFromFile[Thumbnail]("larder.json")
//
// Or start from the defaults:
//
//	cfg := larder.Config()
//	cfg.Disk.Name = "thumbnails"
//	cfg.Disk.TotalCostLimit = 256 << 20
//	c, err := larder.NewFromConfig[Thumbnail](cfg)
//
// # Thread Safety
//
// All cache operations are thread-safe and can be used concurrently from multiple goroutines.
package larder
