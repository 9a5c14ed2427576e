package cache

import (
	"fmt"
	"testing"

	"github.com/LavishGent/larder/internal/config"
)

func BenchmarkMemoryCache_Set(b *testing.B) {
	cache := NewMemoryCache[[]byte](memoryConfig(10000, 0), nil)
	defer cache.Close()

	value := []byte("test-value-with-some-data")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key:%d", i)
		_ = cache.Set(key, value, int64(len(value)))
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	cache := NewMemoryCache[[]byte](memoryConfig(0, 0), nil)
	defer cache.Close()

	value := []byte("test-value-with-some-data")
	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("key:%d", i), value, 1)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = cache.Get(fmt.Sprintf("key:%d", i%1000))
	}
}

func BenchmarkMemoryCache_GetParallel(b *testing.B) {
	cache := NewMemoryCache[[]byte](memoryConfig(0, 0), nil)
	defer cache.Close()

	value := []byte("test-value-with-some-data")
	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("key:%d", i), value, 1)
	}

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = cache.Get(fmt.Sprintf("key:%d", i%1000))
			i++
		}
	})
}

func BenchmarkSerializer_Marshal(b *testing.B) {
	serializer := NewJSONSerializer()
	data := thumbnail{ID: 1, Name: "avatar", Tags: []string{"a", "b"}}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = serializer.Marshal(data)
	}
}

func BenchmarkZstdSerializer_Marshal(b *testing.B) {
	serializer := NewZstdSerializer(nil)
	data := thumbnail{ID: 1, Name: "avatar", Tags: []string{"a", "b"}}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = serializer.Marshal(data)
	}
}

// Benchmark with different payload sizes, straddling the inline threshold.
func BenchmarkDiskCache_Set_1KB(b *testing.B) {
	benchmarkDiskCacheSetBySize(b, 1024)
}

func BenchmarkDiskCache_Set_100KB(b *testing.B) {
	benchmarkDiskCacheSetBySize(b, 102400)
}

func benchmarkDiskCacheSetBySize(b *testing.B, size int) {
	cfg := config.ForTestingAt(b.TempDir())
	cache, err := NewDiskCache[[]byte](cfg, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	value := make([]byte, size)
	for i := range value {
		value[i] = byte(i % 256)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key:%d", i%100)
		_ = cache.Set(key, value, 0)
	}
}
