package device

import (
	"context"
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry pre-populated with n devices of
// eight properties each.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	ctx := context.Background()

	devices := make([]Device, n)
	for i := range devices {
		status := StatusOnline
		if i%3 == 0 {
			status = StatusOffline
		}
		devices[i] = Device{
			Key:              int64(i + 1),
			DSN:              fmt.Sprintf("AC000W%09d", i),
			ProductName:      fmt.Sprintf("Device %d", i),
			ConnectionStatus: status,
		}
	}

	reg := NewRegistry(nil)
	if err := reg.ReplaceDevices(ctx, devices); err != nil {
		b.Fatalf("replacing devices: %v", err)
	}
	for _, d := range devices {
		props := make([]Property, 8)
		for j := range props {
			props[j] = Property{Name: fmt.Sprintf("prop_%d", j), BaseType: BaseTypeInteger, Value: float64(j)}
		}
		if _, err := reg.ReplaceProperties(ctx, d.DSN, props); err != nil {
			b.Fatalf("replacing properties of %s: %v", d.DSN, err)
		}
	}
	return reg
}

func BenchmarkRegistryGetDevice(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.GetDevice("AC000W000000050") //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryGetDevice_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.GetDevice("AC000W000000050") //nolint:errcheck // benchmark
		}
	})
}

func BenchmarkRegistryListDevices(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ListDevices()
	}
}

func BenchmarkRegistryApplyDatapoint(b *testing.B) {
	reg := setupBenchRegistry(b, 100)
	dp := Datapoint{Value: float64(42), UpdatedAt: "2026-03-01T10:00:00Z"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ApplyDatapoint("AC000W000000050", "prop_3", BaseTypeInteger, dp) //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryApplyDatapoint_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)
	dp := Datapoint{Value: float64(42)}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			dsn := fmt.Sprintf("AC000W%09d", i%100)
			reg.ApplyDatapoint(dsn, "prop_1", BaseTypeInteger, dp) //nolint:errcheck // benchmark
			i++
		}
	})
}
