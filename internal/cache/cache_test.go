package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("https://example.com/article", "https://example.com/thumb.png")

	got, ok := c.Get("https://example.com/article")
	if !ok {
		t.Fatal("Get() should find value that was just set")
	}
	if got != "https://example.com/thumb.png" {
		t.Errorf("Get() = %q, want %q", got, "https://example.com/thumb.png")
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should miss for unknown key")
	}
}

func TestMemoryCache_EmptyValueIsHit(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	// An empty value records "no thumbnail found" and must not look like a miss.
	c.Set("https://example.com/no-image", "")

	got, ok := c.Get("https://example.com/no-image")
	if !ok {
		t.Fatal("Get() should hit for cached empty value")
	}
	if got != "" {
		t.Errorf("Get() = %q, want empty string", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.SetWithTTL("key", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("Get() should miss after TTL expiry")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("key", "value")
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("Get() should miss after Delete()")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("Get() should miss after Clear()")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get() should miss after Clear()")
	}
}
