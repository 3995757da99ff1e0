package cache

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestConnect_ParsesURL(t *testing.T) {
	client, err := Connect("redis://localhost:6390/2", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	if got := client.Options().DB; got != 2 {
		t.Errorf("DB = %d, want 2", got)
	}
	if got := client.Options().DialTimeout; got != time.Second {
		t.Errorf("DialTimeout = %v, want 1s", got)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect("redis://localhost:6390/notadb", time.Second); err == nil {
		t.Error("expected error for invalid db index")
	}
}

func TestReadStats_Unreachable(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	lis.Close()

	client, err := Connect(addr, 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := ReadStats(context.Background(), client); err == nil {
		t.Error("expected error from unreachable redis")
	}
}

func TestReadStats(t *testing.T) {
	addr := fakeRedis(t, func(args []string) string {
		switch strings.ToUpper(args[0]) {
		case "DBSIZE":
			return ":12\r\n"
		case "INFO":
			return bulk("# Stats\r\nkeyspace_hits:1500\r\nkeyspace_misses:42\r\n")
		}
		return ""
	})

	client, err := Connect(addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	stats, err := ReadStats(context.Background(), client)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats != (Stats{Keys: 12, Hits: 1500, Misses: 42}) {
		t.Errorf("ReadStats() = %+v", stats)
	}
}

func TestReadStats_MissingStatsSection(t *testing.T) {
	addr := fakeRedis(t, func(args []string) string {
		switch strings.ToUpper(args[0]) {
		case "DBSIZE":
			return ":3\r\n"
		case "INFO":
			return bulk("# Server\r\nredis_version:7.2.4\r\nkeyspace_hits:99\r\n")
		}
		return ""
	})

	client, err := Connect(addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	stats, err := ReadStats(context.Background(), client)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats != (Stats{Keys: 3}) {
		t.Errorf("ReadStats() = %+v, want only the key count", stats)
	}
}

func TestCountKeys(t *testing.T) {
	var (
		mu       sync.Mutex
		patterns []string
	)
	addr := fakeRedis(t, func(args []string) string {
		if strings.ToUpper(args[0]) != "SCAN" {
			return ""
		}
		mu.Lock()
		defer mu.Unlock()
		for i, a := range args {
			if strings.EqualFold(a, "match") && i+1 < len(args) {
				patterns = append(patterns, args[i+1])
			}
		}
		if args[1] == "0" {
			return array(bulk("7"), array(bulk("session:a"), bulk("session:b")))
		}
		return array(bulk("0"), array(bulk("session:c")))
	})

	client, err := Connect(addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	n, err := CountKeys(context.Background(), client, "session:")
	if err != nil {
		t.Fatalf("CountKeys() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountKeys() = %d, want 3", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(patterns) != 2 || patterns[0] != "session:*" {
		t.Errorf("SCAN patterns = %v", patterns)
	}
}
