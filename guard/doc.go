// Package guard composes the guard components into one request pipeline.
//
// A Container owns one instance of every component, built from a
// config.Config: the response cache, the rate-limit manager, the input
// validator, the authenticator chain, the write guard and the sanitizer.
// The write guard and sanitizer are immutable and are swapped atomically
// by Reload; cache contents and rate-limit records survive a reload.
//
// Pipeline runs a Request through the stages in order:
//
//	authenticate -> validate -> rate limit -> write guard -> length -> sanitize   (writes)
//	authenticate -> validate -> rate limit -> cache -> upstream -> schema check   (reads)
//
// A rejected request yields a *Denial naming the stage and a stable Code.
// Writes are never cached.
//
// Usage:
//
//	c, err := guard.New(ctx, cfg)
//	if err != nil { ... }
//	defer c.Close(ctx)
//	go c.Start(ctx)
//
//	body, err := c.Pipeline().Execute(ctx, &guard.Request{
//		Operation: "getMessages",
//		RoomID:    "GENERAL",
//	}, upstream)
//
// For tests, NewTestContainer builds an isolated graph with telemetry off.
package guard
