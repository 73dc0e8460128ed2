package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/chatguard/cache"
)

func ExampleLRU() {
	c := cache.MustNewLRU[string](cache.Policy{MaxSize: 2, TTL: time.Minute})

	c.Set("a", "alpha")
	c.Set("b", "beta")
	c.Get("a")
	c.Set("c", "gamma")

	fmt.Println(c.Keys())
	// Output:
	// [c a]
}

func ExampleKey() {
	key, _ := cache.Key("getRoom", map[string]any{"roomId": "GENERAL", "fields": []any{"name"}})
	fmt.Println(key)
	// Output:
	// getRoom:{"fields":["name"],"roomId":"GENERAL"}
}

func ExampleMiddleware_Execute() {
	lru := cache.MustNewLRU[[]byte](cache.DefaultPolicy())
	mw := cache.NewMiddleware(lru, nil, lru.Policy(), nil)

	calls := 0
	fetch := func(context.Context, string, any) ([]byte, error) {
		calls++
		return []byte(`{"success":true}`), nil
	}

	for i := 0; i < 3; i++ {
		mw.Execute(context.Background(), "listRooms", nil, fetch)
	}
	fmt.Println("upstream calls:", calls)
	// Output:
	// upstream calls: 1
}
